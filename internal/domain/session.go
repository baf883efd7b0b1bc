package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Initial values for every new study session.
const (
	InitialMomentum          = 0.5
	InitialFatigue           = 0.0
	InitialCognitiveCapacity = 1.0
	InitialAttentionSpan     = 1.0
)

// MomentumTrend is the direction of the last momentum update.
type MomentumTrend string

// Momentum trend values
const (
	MomentumImproving MomentumTrend = "improving"
	MomentumDeclining MomentumTrend = "declining"
	MomentumStable    MomentumTrend = "stable"
)

// AdaptationKind groups selection decisions by what they were trying to do.
// The flow metrics compare challenge-type against confidence-type entries.
type AdaptationKind string

// Adaptation kinds
const (
	AdaptationConfidence AdaptationKind = "confidence"
	AdaptationChallenge  AdaptationKind = "challenge"
	AdaptationFlow       AdaptationKind = "flow"
	AdaptationEngagement AdaptationKind = "engagement"
	AdaptationFatigue    AdaptationKind = "fatigue"
	AdaptationBalance    AdaptationKind = "balance"
)

// AdaptationOutcome is how well a selection worked out, filled in once the
// learner answers the selected card. Empty means the answer is pending.
type AdaptationOutcome string

// Adaptation outcomes
const (
	OutcomeOptimal AdaptationOutcome = "optimal"
	OutcomeGood    AdaptationOutcome = "good"
	OutcomeFair    AdaptationOutcome = "fair"
	OutcomePoor    AdaptationOutcome = "poor"
)

// OutcomeForRating maps an answer onto the adaptation outcome scale.
func OutcomeForRating(r Rating) AdaptationOutcome {
	switch r {
	case RatingEasy:
		return OutcomeOptimal
	case RatingGood:
		return OutcomeGood
	case RatingHard:
		return OutcomeFair
	default:
		return OutcomePoor
	}
}

// AdaptationEntry records one selection decision.
type AdaptationEntry struct {
	Timestamp        time.Time          `json:"timestamp"`
	CardID           uuid.UUID          `json:"card_id"`
	Strategy         string             `json:"strategy"`
	Kind             AdaptationKind     `json:"kind"`
	Reason           string             `json:"reason"`
	AlgorithmVersion string             `json:"algorithm_version"`
	Parameters       map[string]float64 `json:"parameters,omitempty"`
	ContentSample    string             `json:"content_sample,omitempty"`
	Outcome          AdaptationOutcome  `json:"outcome,omitempty"`
}

// ExplanationEntry is the human-readable justification for a selection.
type ExplanationEntry struct {
	Timestamp time.Time `json:"timestamp"`
	CardID    uuid.UUID `json:"card_id"`
	Text      string    `json:"text"`
}

// FlowStateMetrics is a derived snapshot of how close the session is to a
// flow state.
type FlowStateMetrics struct {
	ChallengeSkillBalance  float64 `json:"challenge_skill_balance"`
	EngagementLevel        float64 `json:"engagement_level"`
	SatisfactionPrediction float64 `json:"satisfaction_prediction"`
	MomentumMaintenance    bool    `json:"momentum_maintenance"`
}

// SessionState is the session-scoped scheduling aggregate. It is replaced
// wholesale on every update: all With* helpers return a new value and leave
// the receiver untouched. Cards held in buffers are shared between versions
// and must be treated as read-only.
type SessionState struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	StartedAt      time.Time `json:"started_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	LastResponseAt time.Time `json:"last_response_at,omitempty"`

	MomentumScore          float64       `json:"session_momentum_score"`
	MomentumTrend          MomentumTrend `json:"momentum_trend"`
	FatigueIndex           float64       `json:"session_fatigue_index"`
	CognitiveLoadCapacity  float64       `json:"cognitive_load_capacity"`
	AttentionSpanRemaining float64       `json:"attention_span_remaining"`

	ReviewQueue      []*Card `json:"review_queue"`
	LookaheadBuffer  []*Card `json:"lookahead_buffer"`
	EmergencyBuffer  []*Card `json:"emergency_buffer"`
	ChallengeReserve []*Card `json:"challenge_reserve"`

	AdaptationHistory  []AdaptationEntry  `json:"adaptation_history"`
	ExplanationLog     []ExplanationEntry `json:"explanation_log"`
	FlowState          FlowStateMetrics   `json:"flow_state_metrics"`
	ResponsesProcessed int                `json:"responses_processed"`
}

// NewSessionState creates the initial state for a study session.
func NewSessionState(userID uuid.UUID, now time.Time) *SessionState {
	return &SessionState{
		ID:                     uuid.New(),
		UserID:                 userID,
		StartedAt:              now.UTC(),
		UpdatedAt:              now.UTC(),
		MomentumScore:          InitialMomentum,
		MomentumTrend:          MomentumStable,
		FatigueIndex:           InitialFatigue,
		CognitiveLoadCapacity:  InitialCognitiveCapacity,
		AttentionSpanRemaining: InitialAttentionSpan,
		ReviewQueue:            []*Card{},
		LookaheadBuffer:        []*Card{},
		EmergencyBuffer:        []*Card{},
		ChallengeReserve:       []*Card{},
		AdaptationHistory:      []AdaptationEntry{},
		ExplanationLog:         []ExplanationEntry{},
		FlowState: FlowStateMetrics{
			ChallengeSkillBalance:  1.0,
			EngagementLevel:        0.5,
			SatisfactionPrediction: 0.7,
			MomentumMaintenance:    true,
		},
	}
}

// Clone returns a copy with fresh slices. Card pointers are shared.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	out := *s
	out.ReviewQueue = append([]*Card{}, s.ReviewQueue...)
	out.LookaheadBuffer = append([]*Card{}, s.LookaheadBuffer...)
	out.EmergencyBuffer = append([]*Card{}, s.EmergencyBuffer...)
	out.ChallengeReserve = append([]*Card{}, s.ChallengeReserve...)
	out.AdaptationHistory = append([]AdaptationEntry{}, s.AdaptationHistory...)
	out.ExplanationLog = append([]ExplanationEntry{}, s.ExplanationLog...)
	return &out
}

// SessionMinutes returns minutes elapsed since the session started.
func (s *SessionState) SessionMinutes(now time.Time) float64 {
	m := now.Sub(s.StartedAt).Minutes()
	if m < 0 {
		return 0
	}
	return m
}

// LastActivity returns the time of the last processed response, or the
// session start when nothing has been answered yet.
func (s *SessionState) LastActivity() time.Time {
	if s.LastResponseAt.IsZero() {
		return s.StartedAt
	}
	return s.LastResponseAt
}

// RecentAdaptations returns up to n of the latest adaptation entries, oldest first.
func (s *SessionState) RecentAdaptations(n int) []AdaptationEntry {
	h := s.AdaptationHistory
	if n < len(h) {
		h = h[len(h)-n:]
	}
	return h
}

// WithSelection records a selection decision: the entry and explanation are
// appended and the selected card is removed from whichever buffer held it.
func (s *SessionState) WithSelection(entry AdaptationEntry, explanation string, now time.Time) *SessionState {
	out := s.Clone()
	out.AdaptationHistory = append(out.AdaptationHistory, entry)
	out.ExplanationLog = append(out.ExplanationLog, ExplanationEntry{
		Timestamp: entry.Timestamp,
		CardID:    entry.CardID,
		Text:      explanation,
	})
	out.ReviewQueue = removeCard(out.ReviewQueue, entry.CardID)
	out.LookaheadBuffer = removeCard(out.LookaheadBuffer, entry.CardID)
	out.EmergencyBuffer = removeCard(out.EmergencyBuffer, entry.CardID)
	out.ChallengeReserve = removeCard(out.ChallengeReserve, entry.CardID)
	out.UpdatedAt = now.UTC()
	return out
}

// WithBuffers replaces all four buffers at once.
func (s *SessionState) WithBuffers(review, lookahead, emergency, challenge []*Card, now time.Time) *SessionState {
	out := s.Clone()
	out.ReviewQueue = append([]*Card{}, review...)
	out.LookaheadBuffer = append([]*Card{}, lookahead...)
	out.EmergencyBuffer = append([]*Card{}, emergency...)
	out.ChallengeReserve = append([]*Card{}, challenge...)
	out.UpdatedAt = now.UTC()
	return out
}

// WithCard swaps in an updated version of a buffered card, matched by id.
func (s *SessionState) WithCard(card *Card) *SessionState {
	out := s.Clone()
	for _, buf := range [][]*Card{out.ReviewQueue, out.LookaheadBuffer, out.EmergencyBuffer, out.ChallengeReserve} {
		for i, c := range buf {
			if c.ID == card.ID {
				buf[i] = card
			}
		}
	}
	return out
}

// BuffersEmpty reports whether there is nothing left to pull from the
// review queue or lookahead buffer.
func (s *SessionState) BuffersEmpty() bool {
	return len(s.ReviewQueue) == 0 && len(s.LookaheadBuffer) == 0
}

// FindBufferedCard looks a card up across all four buffers.
func (s *SessionState) FindBufferedCard(id uuid.UUID) (*Card, bool) {
	for _, buf := range [][]*Card{s.ReviewQueue, s.LookaheadBuffer, s.EmergencyBuffer, s.ChallengeReserve} {
		for _, c := range buf {
			if c.ID == id {
				return c, true
			}
		}
	}
	return nil, false
}

// ValidateBuffers checks that no card id appears in more than one buffer,
// or twice within the same buffer.
func (s *SessionState) ValidateBuffers() error {
	seen := make(map[uuid.UUID]string)
	named := []struct {
		name  string
		cards []*Card
	}{
		{"review_queue", s.ReviewQueue},
		{"lookahead_buffer", s.LookaheadBuffer},
		{"emergency_buffer", s.EmergencyBuffer},
		{"challenge_reserve", s.ChallengeReserve},
	}
	for _, b := range named {
		for _, c := range b.cards {
			if prev, ok := seen[c.ID]; ok {
				return fmt.Errorf("%w: card %s in %s and %s", ErrBuffersOverlap, c.ID, prev, b.name)
			}
			seen[c.ID] = b.name
		}
	}
	return nil
}

func removeCard(cards []*Card, id uuid.UUID) []*Card {
	out := cards[:0]
	for _, c := range cards {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
