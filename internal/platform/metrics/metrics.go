// Package metrics exposes scheduler activity as Prometheus metrics.
//
// Collector is an events.EventHandler: the study service emits events and
// the collector turns them into counters and histograms. It also provides
// HTTP middleware and the scrape handler.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-uams/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "scry_uams"

// Collector holds all Prometheus metrics for the application.
type Collector struct {
	registry *prometheus.Registry
	logger   *slog.Logger

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Scheduler metrics
	SessionsStarted    prometheus.Counter
	QueueBuilds        *prometheus.CounterVec
	Selections         *prometheus.CounterVec
	SelectionFallbacks *prometheus.CounterVec
	Responses          *prometheus.CounterVec
	ResponseTime       prometheus.Histogram
	SessionMomentum    prometheus.Histogram
	LoadAlerts         *prometheus.CounterVec
	IntervalDays       prometheus.Histogram
}

var _ events.EventHandler = (*Collector)(nil)

// NewCollector creates a collector with its own registry, so any number of
// collectors can coexist (one per test, for instance). If logger is nil, a
// default logger will be used.
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		logger:   logger.With(slog.String("component", "metrics")),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of study sessions started",
		}),
		QueueBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "queue_builds_total",
			Help:      "Adaptive queue builds by mode and outcome",
		}, []string{"mode", "outcome"}),
		Selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "card_selections_total",
			Help:      "Card selections by strategy",
		}, []string{"strategy"}),
		SelectionFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "selection_filter_fallbacks_total",
			Help:      "Selections where a filter degraded to a looser candidate set",
		}, []string{"warning"}),
		Responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "responses_total",
			Help:      "Recorded responses by rating",
		}, []string{"rating"}),
		ResponseTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "response_time_seconds",
			Help:      "Learner response time",
			Buckets:   []float64{1, 2, 4, 8, 12, 20, 30, 60},
		}),
		SessionMomentum: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "session_momentum",
			Help:      "Session momentum after each response",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		LoadAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cognitive_load_alerts_total",
			Help:      "Cognitive load alerts by level",
		}, []string{"level"}),
		IntervalDays: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "review_interval_days",
			Help:      "Scheduled review intervals",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.SessionsStarted,
		c.QueueBuilds,
		c.Selections,
		c.SelectionFallbacks,
		c.Responses,
		c.ResponseTime,
		c.SessionMomentum,
		c.LoadAlerts,
		c.IntervalDays,
	)
	return c
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// HandleEvent implements events.EventHandler.
func (c *Collector) HandleEvent(ctx context.Context, event *events.StudyEvent) error {
	switch event.Type {
	case events.TypeSessionStarted:
		c.SessionsStarted.Inc()

	case events.TypeQueueBuilt:
		var p events.QueueBuiltPayload
		if err := event.UnmarshalPayload(&p); err != nil {
			return fmt.Errorf("decode %s payload: %w", event.Type, err)
		}
		outcome := "ranked"
		if p.Fallback {
			outcome = "fifo_fallback"
		}
		c.QueueBuilds.WithLabelValues(p.Mode, outcome).Inc()

	case events.TypeCardSelected:
		var p events.CardSelectedPayload
		if err := event.UnmarshalPayload(&p); err != nil {
			return fmt.Errorf("decode %s payload: %w", event.Type, err)
		}
		c.Selections.WithLabelValues(p.Strategy).Inc()
		for _, w := range p.Warnings {
			c.SelectionFallbacks.WithLabelValues(w).Inc()
		}

	case events.TypeResponseRecorded:
		var p events.ResponseRecordedPayload
		if err := event.UnmarshalPayload(&p); err != nil {
			return fmt.Errorf("decode %s payload: %w", event.Type, err)
		}
		c.Responses.WithLabelValues(p.Rating).Inc()
		c.ResponseTime.Observe(float64(p.ResponseTimeMS) / 1000)
		c.SessionMomentum.Observe(p.Momentum)
		c.IntervalDays.Observe(float64(p.IntervalDays))

	case events.TypeLoadAlert:
		var p events.LoadAlertPayload
		if err := event.UnmarshalPayload(&p); err != nil {
			return fmt.Errorf("decode %s payload: %w", event.Type, err)
		}
		c.LoadAlerts.WithLabelValues(p.AlertLevel).Inc()

	default:
		c.logger.DebugContext(ctx, "ignoring event", slog.String("event_type", event.Type))
	}
	return nil
}

// Middleware records request counts and latencies labelled by the matched
// chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
