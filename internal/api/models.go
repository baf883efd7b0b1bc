package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/domain/selection"
	"github.com/phrazzld/scry-uams/internal/service/study"
)

// StartSessionRequest is the body of POST /sessions.
type StartSessionRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// EnvironmentRequest describes the learner's surroundings. Every field is
// optional; omitted fields mean unknown.
type EnvironmentRequest struct {
	NetworkQuality string `json:"network_quality,omitempty" validate:"omitempty,oneof=excellent good poor offline"`
	DeviceType     string `json:"device_type,omitempty" validate:"omitempty,oneof=desktop mobile tablet"`
	LowBattery     bool   `json:"low_battery,omitempty"`
	NoiseLevel     string `json:"noise_level,omitempty" validate:"omitempty,oneof=quiet moderate noisy"`
	Lighting       string `json:"lighting,omitempty" validate:"omitempty,oneof=optimal dim bright"`
}

// toDomain converts the request into the domain environment.
func (e EnvironmentRequest) toDomain() domain.EnvironmentalContext {
	return domain.EnvironmentalContext{
		NetworkQuality: domain.NetworkQuality(e.NetworkQuality),
		DeviceType:     domain.DeviceType(e.DeviceType),
		LowBattery:     e.LowBattery,
		NoiseLevel:     domain.NoiseLevel(e.NoiseLevel),
		Lighting:       domain.Lighting(e.Lighting),
	}
}

// NextCardRequest is the optional body of POST /sessions/{id}/next.
type NextCardRequest struct {
	Environment EnvironmentRequest `json:"environment"`
}

// SubmitResponseRequest is the body of POST /sessions/{id}/responses. The
// rating is checked by the service, which also accepts mixed case.
type SubmitResponseRequest struct {
	CardID         string             `json:"card_id" validate:"required,uuid"`
	Rating         string             `json:"rating" validate:"required"`
	ResponseTimeMS int64              `json:"response_time_ms" validate:"gte=0"`
	Environment    EnvironmentRequest `json:"environment"`
}

// SessionResponse is the externally visible snapshot of a study session.
type SessionResponse struct {
	ID                     uuid.UUID                 `json:"id"`
	UserID                 uuid.UUID                 `json:"user_id"`
	StartedAt              time.Time                 `json:"started_at"`
	UpdatedAt              time.Time                 `json:"updated_at"`
	MomentumScore          float64                   `json:"session_momentum_score"`
	MomentumTrend          domain.MomentumTrend      `json:"momentum_trend"`
	FatigueIndex           float64                   `json:"session_fatigue_index"`
	CognitiveLoadCapacity  float64                   `json:"cognitive_load_capacity"`
	AttentionSpanRemaining float64                   `json:"attention_span_remaining"`
	FlowState              domain.FlowStateMetrics   `json:"flow_state_metrics"`
	ResponsesProcessed     int                       `json:"responses_processed"`
	Buffers                BufferSizes               `json:"buffers"`
	RecentExplanations     []domain.ExplanationEntry `json:"recent_explanations,omitempty"`
}

// BufferSizes reports how many cards each session buffer holds.
type BufferSizes struct {
	ReviewQueue      int `json:"review_queue"`
	LookaheadBuffer  int `json:"lookahead_buffer"`
	EmergencyBuffer  int `json:"emergency_buffer"`
	ChallengeReserve int `json:"challenge_reserve"`
}

// recentExplanationCount bounds the explanations echoed in a snapshot.
const recentExplanationCount = 5

func sessionToResponse(s *domain.SessionState) SessionResponse {
	explanations := s.ExplanationLog
	if len(explanations) > recentExplanationCount {
		explanations = explanations[len(explanations)-recentExplanationCount:]
	}
	return SessionResponse{
		ID:                     s.ID,
		UserID:                 s.UserID,
		StartedAt:              s.StartedAt,
		UpdatedAt:              s.UpdatedAt,
		MomentumScore:          s.MomentumScore,
		MomentumTrend:          s.MomentumTrend,
		FatigueIndex:           s.FatigueIndex,
		CognitiveLoadCapacity:  s.CognitiveLoadCapacity,
		AttentionSpanRemaining: s.AttentionSpanRemaining,
		FlowState:              s.FlowState,
		ResponsesProcessed:     s.ResponsesProcessed,
		Buffers: BufferSizes{
			ReviewQueue:      len(s.ReviewQueue),
			LookaheadBuffer:  len(s.LookaheadBuffer),
			EmergencyBuffer:  len(s.EmergencyBuffer),
			ChallengeReserve: len(s.ChallengeReserve),
		},
		RecentExplanations: explanations,
	}
}

// SelectionResponse is the body returned by POST /sessions/{id}/next.
type SelectionResponse struct {
	SessionID    uuid.UUID          `json:"session_id"`
	Card         *domain.Card       `json:"card"`
	Strategy     selection.Strategy `json:"strategy"`
	Explanation  string             `json:"explanation"`
	Reasoning    []string           `json:"reasoning"`
	Confidence   float64            `json:"confidence"`
	Alternatives []uuid.UUID        `json:"alternatives,omitempty"`
	Fallback     bool               `json:"fallback"`
	Warnings     []string           `json:"warnings,omitempty"`
	Rebuilt      bool               `json:"queue_rebuilt"`
}

func selectionToResponse(sessionID uuid.UUID, res *study.NextCardResult) SelectionResponse {
	out := SelectionResponse{
		SessionID: sessionID,
		Card:      res.Card,
		Rebuilt:   res.Rebuilt,
	}
	if sel := res.Selection; sel != nil {
		out.Strategy = sel.Strategy
		out.Explanation = sel.Explanation
		out.Reasoning = sel.Reasoning
		out.Confidence = sel.Confidence
		out.Fallback = sel.Fallback
		out.Warnings = sel.Warnings
		for _, alt := range sel.Alternatives {
			out.Alternatives = append(out.Alternatives, alt.ID)
		}
	}
	return out
}
