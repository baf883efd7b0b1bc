package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/events"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func emit(t *testing.T, c *Collector, eventType string, payload any) {
	t.Helper()
	event, err := events.NewStudyEvent(eventType, uuid.New(), uuid.New(), payload, testNow)
	require.NoError(t, err)
	require.NoError(t, c.HandleEvent(context.Background(), event))
}

func TestCollectorHandleEvent(t *testing.T) {
	t.Parallel()
	c := NewCollector(nil)

	emit(t, c, events.TypeSessionStarted, struct{}{})
	emit(t, c, events.TypeQueueBuilt, events.QueueBuiltPayload{Mode: "normal"})
	emit(t, c, events.TypeQueueBuilt, events.QueueBuiltPayload{Mode: "crisis", Fallback: true})
	emit(t, c, events.TypeCardSelected, events.CardSelectedPayload{
		Strategy: "balanced",
		Warnings: []string{"anti_clustering_fallback"},
	})
	emit(t, c, events.TypeCardSelected, events.CardSelectedPayload{Strategy: "balanced"})
	emit(t, c, events.TypeResponseRecorded, events.ResponseRecordedPayload{
		Rating:         "good",
		ResponseTimeMS: 4200,
		Momentum:       0.6,
		IntervalDays:   3,
	})
	emit(t, c, events.TypeLoadAlert, events.LoadAlertPayload{AlertLevel: "red"})
	emit(t, c, "something.else", struct{}{})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.SessionsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.QueueBuilds.WithLabelValues("normal", "ranked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.QueueBuilds.WithLabelValues("crisis", "fifo_fallback")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Selections.WithLabelValues("balanced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SelectionFallbacks.WithLabelValues("anti_clustering_fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Responses.WithLabelValues("good")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.LoadAlerts.WithLabelValues("red")))
}

func TestCollectorRejectsMalformedPayload(t *testing.T) {
	t.Parallel()
	c := NewCollector(nil)
	event := &events.StudyEvent{Type: events.TypeLoadAlert, Payload: []byte("{not json")}
	assert.Error(t, c.HandleEvent(context.Background(), event))
}

func TestCollectorMiddlewareAndHandler(t *testing.T) {
	t.Parallel()
	c := NewCollector(nil)

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/api/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", c.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/sessions/{id}", "404")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "scry_uams_http_requests_total"))
}
