package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/scry-uams/internal/api/shared"
	"github.com/phrazzld/scry-uams/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMiddleware(t *testing.T) {
	t.Parallel()
	log, buf := logger.GetTestLogger(t)

	var seen string
	handler := NewTraceMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))

	require.Len(t, seen, shared.TraceIDLength)
	assert.Equal(t, seen, w.Header().Get(TraceHeader))
	logger.AssertLogField(t, buf, "trace_id", seen)
	logger.AssertLogContains(t, buf, "inside handler")
}

func TestTraceMiddlewareKeepsInboundID(t *testing.T) {
	t.Parallel()
	var seen string
	handler := NewTraceMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.GetTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceHeader, "edge-1234")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "edge-1234", seen)
	assert.Equal(t, "edge-1234", w.Header().Get(TraceHeader))
}
