package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is the type of the request context keys set by the API layer.
type ContextKey string

const (
	// TraceIDKey is the context key of the request trace id.
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the length of a generated trace id in hex characters.
	TraceIDLength = 32

	// maxInboundTraceID caps trace ids accepted from clients.
	maxInboundTraceID = 64
)

// SetTraceID stores a trace id in ctx. An inbound id supplied by the client
// is kept when it is printable and short enough; otherwise a new one is
// generated.
func SetTraceID(ctx context.Context, inbound string) context.Context {
	traceID := inbound
	if !validInboundTraceID(traceID) {
		traceID = NewTraceID()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace id of ctx, or "" when none was set.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// NewTraceID returns a random trace id of TraceIDLength hex characters.
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func validInboundTraceID(id string) bool {
	if id == "" || len(id) > maxInboundTraceID {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
