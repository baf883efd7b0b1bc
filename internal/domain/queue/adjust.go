package queue

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/domain/numeric"
)

// Adjustment names the change AdjustDynamically made.
type Adjustment string

// Dynamic adjustments
const (
	AdjustmentNone              Adjustment = "none"
	AdjustmentEmergencyInjected Adjustment = "emergency_injected"
	AdjustmentChallengeInjected Adjustment = "challenge_injected"
)

// AdjustDynamically reacts to recent performance samples in [0, 1]. A
// struggling, fatigued learner gets the emergency buffer moved to the front
// of the review queue; a thriving learner with high momentum gets the
// challenge reserve spliced in at ChallengeInsertAt. Moved cards leave their
// source buffer so the buffers stay disjoint.
func (m *Manager) AdjustDynamically(b Buffers, state *domain.SessionState, samples []float64) (Buffers, Adjustment) {
	if len(samples) == 0 {
		return b, AdjustmentNone
	}
	p := m.params
	avg := numeric.Mean(samples)

	switch {
	case avg < p.StrugglingPerformance && state.FatigueIndex > p.StrugglingFatigue && len(b.EmergencyBuffer) > 0:
		review := make([]*domain.Card, 0, len(b.EmergencyBuffer)+len(b.ReviewQueue))
		review = append(review, b.EmergencyBuffer...)
		review = append(review, b.ReviewQueue...)
		b.ReviewQueue = review
		b.EmergencyBuffer = []*domain.Card{}
		m.logger.Info("emergency cards moved to the front of the queue",
			slog.String("session_id", state.ID.String()),
			slog.Float64("performance", avg))
		return b, AdjustmentEmergencyInjected

	case avg > p.ThrivingPerformance && state.MomentumScore > p.ThrivingMomentum && len(b.ChallengeReserve) > 0:
		at := min(p.ChallengeInsertAt, len(b.ReviewQueue))
		review := make([]*domain.Card, 0, len(b.ReviewQueue)+len(b.ChallengeReserve))
		review = append(review, b.ReviewQueue[:at]...)
		review = append(review, b.ChallengeReserve...)
		review = append(review, b.ReviewQueue[at:]...)
		b.ReviewQueue = review
		b.ChallengeReserve = []*domain.Card{}
		m.logger.Info("challenge cards spliced into the queue",
			slog.String("session_id", state.ID.String()),
			slog.Float64("performance", avg),
			slog.Int("position", at))
		return b, AdjustmentChallengeInjected
	}
	return b, AdjustmentNone
}

// OptimizeOrdering returns cards sorted by urgency (most overdue first),
// then by closeness of difficulty to the momentum-derived target, then by
// ascending retrievability. The sort is stable and the input is not modified.
func (m *Manager) OptimizeOrdering(cards []*domain.Card, state *domain.SessionState, now time.Time) []*domain.Card {
	target := m.targetDifficulty(state)
	out := append([]*domain.Card(nil), cards...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ua, ub := m.urgency(a, now), m.urgency(b, now); ua != ub {
			return ua > ub
		}
		if da, db := math.Abs(a.Difficulty-target), math.Abs(b.Difficulty-target); da != db {
			return da < db
		}
		return a.Retrievability < b.Retrievability
	})
	return out
}

// urgency is overdue days scaled to [0, 1]. Cards without a due date are
// maximally urgent.
func (m *Manager) urgency(c *domain.Card, now time.Time) float64 {
	if c.NextReviewAt.IsZero() {
		return 1
	}
	return numeric.Clamp01(c.DaysOverdue(now) / m.params.UrgencyDays)
}

func (m *Manager) targetDifficulty(state *domain.SessionState) float64 {
	return state.MomentumScore * m.params.TargetDifficultyScale
}

// Efficiency describes how well a queue fits the session.
type Efficiency struct {
	Diversity         float64 `json:"diversity"`
	DifficultyBalance float64 `json:"difficulty_balance"`
	MomentumAlignment float64 `json:"momentum_alignment"`
}

// Efficiency scores a card sequence. An empty sequence scores zero.
func (m *Manager) Efficiency(cards []*domain.Card, state *domain.SessionState) Efficiency {
	if len(cards) == 0 {
		return Efficiency{}
	}
	difficulties := make([]float64, len(cards))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, c := range cards {
		difficulties[i] = c.Difficulty
		lo = math.Min(lo, c.Difficulty)
		hi = math.Max(hi, c.Difficulty)
	}
	avg := numeric.Mean(difficulties)
	return Efficiency{
		Diversity:         numeric.Clamp01((hi - lo) / 10),
		DifficultyBalance: numeric.Clamp01(1 - math.Abs(avg-m.params.BalancedDifficulty)/10),
		MomentumAlignment: numeric.Clamp01(1 - math.Abs(avg-m.targetDifficulty(state))/10),
	}
}
