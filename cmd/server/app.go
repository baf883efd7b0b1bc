package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-uams/internal/api"
	"github.com/phrazzld/scry-uams/internal/config"
	"github.com/phrazzld/scry-uams/internal/events"
	"github.com/phrazzld/scry-uams/internal/platform/metrics"
	"github.com/phrazzld/scry-uams/internal/platform/postgres"
	"github.com/phrazzld/scry-uams/internal/service/study"
	"github.com/phrazzld/scry-uams/internal/store"
)

var _ events.EventHandler = (*eventLogHandler)(nil)

// eventLogHandler writes study events worth an operator's attention to the
// application log.
type eventLogHandler struct {
	logger *slog.Logger
}

// HandleEvent implements events.EventHandler.
func (h *eventLogHandler) HandleEvent(ctx context.Context, event *events.StudyEvent) error {
	switch event.Type {
	case events.TypeLoadAlert:
		var payload events.LoadAlertPayload
		if err := event.UnmarshalPayload(&payload); err != nil {
			return err
		}
		h.logger.WarnContext(ctx, "cognitive load alert",
			slog.String("session_id", event.SessionID.String()),
			slog.String("user_id", event.UserID.String()),
			slog.String("alert_level", payload.AlertLevel),
			slog.Float64("utilization_rate", payload.UtilizationRate),
			slog.Float64("sustainability", payload.Sustainability))
	case events.TypeSessionStarted:
		h.logger.InfoContext(ctx, "study session started",
			slog.String("session_id", event.SessionID.String()),
			slog.String("user_id", event.UserID.String()))
	default:
		h.logger.DebugContext(ctx, "study event",
			slog.String("event_type", event.Type),
			slog.String("event_id", event.ID.String()),
			slog.String("session_id", event.SessionID.String()))
	}
	return nil
}

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	cardStore     store.CardStore
	sessionStore  store.SessionStore
	responseStore store.ResponseLogStore
	profileStore  store.UserProfileStore

	eventEmitter *events.InMemoryEventEmitter
	metrics      *metrics.Collector
	studyService study.Service
}

// newApplication wires stores, events, metrics and the study service on
// top of an open database connection.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) *application {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.cardStore = postgres.NewPostgresCardStore(db, logger)
	app.sessionStore = postgres.NewPostgresSessionStore(db, logger)
	app.responseStore = postgres.NewPostgresResponseLogStore(db, logger)
	app.profileStore = postgres.NewPostgresUserProfileStore(db, logger)

	transactor := store.NewSQLTransactor(db, store.Stores{
		Cards:     app.cardStore,
		Sessions:  app.sessionStore,
		Responses: app.responseStore,
	})

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(&eventLogHandler{
		logger: logger.With(slog.String("component", "event_log")),
	})
	if cfg.Metrics.Enabled {
		app.metrics = metrics.NewCollector(logger)
		app.eventEmitter.RegisterHandler(app.metrics)
	}

	app.studyService = study.NewService(study.Dependencies{
		Cards:     app.cardStore,
		Sessions:  app.sessionStore,
		Responses: app.responseStore,
		Profiles:  app.profileStore,
		Tx:        transactor,
		Emitter:   app.eventEmitter,
	}, cfg.Scheduler, logger)

	logger.Info("application initialized successfully")
	return app
}

// handler builds the HTTP handler of the application.
func (app *application) handler() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Study:       app.studyService,
		Metrics:     app.metrics,
		MetricsPath: app.config.Metrics.Path,
		Logger:      app.logger,
	})
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
	app.logger.Info("application shutdown completed")
}
