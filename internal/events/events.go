package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the study service.
const (
	TypeSessionStarted   = "session.started"
	TypeQueueBuilt       = "queue.built"
	TypeCardSelected     = "card.selected"
	TypeResponseRecorded = "response.recorded"
	TypeLoadAlert        = "load.alert"
)

// StudyEvent describes something that happened in a study session.
type StudyEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	SessionID uuid.UUID `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the study clock at the time of the event
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *StudyEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewStudyEvent creates a StudyEvent with the specified type and payload.
func NewStudyEvent(eventType string, sessionID, userID uuid.UUID, payload any, at time.Time) (*StudyEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &StudyEvent{
		ID:        uuid.New(),
		Type:      eventType,
		SessionID: sessionID,
		UserID:    userID,
		Payload:   payloadBytes,
		CreatedAt: at.UTC(),
	}, nil
}

// QueueBuiltPayload accompanies TypeQueueBuilt.
type QueueBuiltPayload struct {
	Mode      string `json:"mode"`
	Fallback  bool   `json:"fallback"`
	Review    int    `json:"review"`
	Lookahead int    `json:"lookahead"`
	Emergency int    `json:"emergency"`
	Challenge int    `json:"challenge"`
}

// CardSelectedPayload accompanies TypeCardSelected.
type CardSelectedPayload struct {
	CardID     uuid.UUID `json:"card_id"`
	Strategy   string    `json:"strategy"`
	Confidence float64   `json:"confidence"`
	Fallback   bool      `json:"fallback"`
	Warnings   []string  `json:"warnings,omitempty"`
}

// ResponseRecordedPayload accompanies TypeResponseRecorded.
type ResponseRecordedPayload struct {
	CardID         uuid.UUID `json:"card_id"`
	Rating         string    `json:"rating"`
	ResponseTimeMS int64     `json:"response_time_ms"`
	Difficulty     float64   `json:"difficulty"`
	Stability      float64   `json:"stability"`
	Retrievability float64   `json:"retrievability"`
	Momentum       float64   `json:"momentum"`
	Fatigue        float64   `json:"fatigue"`
	IntervalDays   int       `json:"interval_days"`
	Adjustment     string    `json:"adjustment,omitempty"`
}

// LoadAlertPayload accompanies TypeLoadAlert.
type LoadAlertPayload struct {
	AlertLevel      string  `json:"alert_level"`
	UtilizationRate float64 `json:"utilization_rate"`
	Sustainability  float64 `json:"sustainability"`
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *StudyEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *StudyEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *StudyEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *StudyEvent) error {
	return f(ctx, event)
}
