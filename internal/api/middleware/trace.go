// Package middleware contains the HTTP middleware of the study API.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-uams/internal/api/shared"
	"github.com/phrazzld/scry-uams/internal/platform/logger"
)

// TraceHeader carries the trace id on requests and responses.
const TraceHeader = "X-Trace-ID"

// NewTraceMiddleware adds a trace ID to the request context and a request
// logger tagged with it. It should run before any handler that logs or
// writes error responses.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context(), r.Header.Get(TraceHeader))
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)
			w.Header().Set(TraceHeader, traceID)

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
