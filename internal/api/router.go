package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/scry-uams/internal/api/middleware"
	"github.com/phrazzld/scry-uams/internal/platform/metrics"
	"github.com/phrazzld/scry-uams/internal/service/study"
)

// DefaultRequestTimeout bounds the handling time of a single request.
const DefaultRequestTimeout = 30 * time.Second

// RouterConfig holds the dependencies of the HTTP router.
type RouterConfig struct {
	Study          study.Service
	Metrics        *metrics.Collector // nil disables instrumentation and /metrics
	MetricsPath    string             // defaults to /metrics
	RequestTimeout time.Duration      // defaults to DefaultRequestTimeout
	Logger         *slog.Logger
}

// NewRouter creates the application router with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(log))
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	studyHandler := NewStudyHandler(cfg.Study, log)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))

		r.Post("/sessions", studyHandler.StartSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", studyHandler.GetSession)
			r.Delete("/", studyHandler.EndSession)
			r.Post("/next", studyHandler.NextCard)
			r.Post("/responses", studyHandler.SubmitResponse)
			r.Get("/load", studyHandler.CognitiveLoad)
			r.Get("/analysis", studyHandler.Analyze)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error("failed to write health check response", slog.String("error", err.Error()))
		}
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, cfg.MetricsPath, cfg.Metrics.Handler())
	}

	return r
}
