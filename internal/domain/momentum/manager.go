// Package momentum advances the per-session momentum and fatigue state after
// every answer and derives flow-state diagnostics from it.
package momentum

import (
	"log/slog"
	"math"
	"time"

	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/domain/numeric"
)

// Manager computes session state transitions. It is stateless; every call
// returns a new SessionState and leaves its input untouched.
type Manager struct {
	params *Params
	logger *slog.Logger
}

// NewManager creates a momentum manager. Nil params select the defaults and
// a nil logger selects slog.Default().
func NewManager(params *Params, logger *slog.Logger) *Manager {
	if params == nil {
		params = NewDefaultParams()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		params: params,
		logger: logger.With(slog.String("component", "momentum_manager")),
	}
}

// PerformanceValue maps a rating onto the [0, 1] performance scale used for
// momentum and queue adjustment. Unknown ratings score 0.5.
func (m *Manager) PerformanceValue(r domain.Rating) float64 {
	if v, ok := m.params.Performance[r]; ok {
		return v
	}
	return 0.5
}

// PerformanceSamples returns the performance values of the last n responses.
func (m *Manager) PerformanceSamples(history []domain.ResponseLog, n int) []float64 {
	if n < len(history) {
		history = history[len(history)-n:]
	}
	out := make([]float64, len(history))
	for i, r := range history {
		out[i] = m.PerformanceValue(r.Rating)
	}
	return out
}

// Update applies one response to the session state and returns the next
// state. The response timestamp is the clock for every time-based term.
//
// All four session signals are clamped to their ranges. Fatigue only grows,
// except for a small recovery after an easy answer.
func (m *Manager) Update(state *domain.SessionState, resp domain.ResponseLog) *domain.SessionState {
	p := m.params
	at := resp.Timestamp
	minutes := state.SessionMinutes(at)
	next := state.Clone()

	perf := m.PerformanceValue(resp.Rating)

	momentum := state.MomentumScore*p.MomentumMemory +
		perf*(1-p.MomentumMemory) +
		m.fatigueAdjustment(state.FatigueIndex) +
		m.contextualModifier(resp) +
		m.responseTimeModifier(resp.ResponseTime())
	momentum = numeric.Clamp01(momentum)

	fatigue := m.nextFatigue(state, resp, minutes)
	capacity := m.nextCapacity(state.CognitiveLoadCapacity, resp.Rating, fatigue, minutes)

	next.MomentumScore = momentum
	next.MomentumTrend = m.trend(state.MomentumScore, momentum)
	next.FatigueIndex = fatigue
	next.CognitiveLoadCapacity = capacity
	next.AttentionSpanRemaining = m.nextAttention(resp.Rating, fatigue, minutes)
	next.AdaptationHistory = annotateOutcome(next.AdaptationHistory, resp)
	next.FlowState = m.FlowMetrics(next, at)
	next.ResponsesProcessed = state.ResponsesProcessed + 1
	next.LastResponseAt = at.UTC()
	next.UpdatedAt = at.UTC()

	if next.MomentumTrend != state.MomentumTrend {
		m.logger.Debug("momentum trend changed",
			slog.String("session_id", state.ID.String()),
			slog.String("from", string(state.MomentumTrend)),
			slog.String("to", string(next.MomentumTrend)),
			slog.Float64("momentum", momentum))
	}

	return next
}

// fatigueAdjustment is the tiered momentum penalty for the fatigue carried
// into this answer.
func (m *Manager) fatigueAdjustment(fatigue float64) float64 {
	switch {
	case fatigue > 0.9:
		return -0.3
	case fatigue > 0.8:
		return -0.2
	case fatigue > 0.6:
		return -0.1
	case fatigue > 0.3:
		return -0.05
	default:
		return 0
	}
}

func (m *Manager) contextualModifier(resp domain.ResponseLog) float64 {
	p := m.params
	mod := 0.0

	switch h := resp.Timestamp.Hour(); {
	case h >= 8 && h < 10:
		mod += p.MorningBonus
	case h >= 16 && h < 18:
		mod += p.AfternoonBonus
	case h >= 22 || h < 6:
		mod -= p.LateNightPenalty
	}

	switch load := resp.Context.CognitiveLoad; {
	case load > 0.8:
		mod -= p.HighLoadPenalty
	case load < 0.3:
		mod -= p.LowLoadPenalty
	}

	env := resp.Context.Environment
	if env.PoorNetwork() || env.Offline() {
		mod -= p.NetworkPenalty
	}
	if env.Mobile() && env.LowBattery {
		mod -= p.LowBatteryPenalty
	}
	if env.Noisy() {
		mod -= p.NoisyPenalty
	}
	return mod
}

// responseTimeModifier penalizes likely guesses and long struggles and
// rewards answers in the 2-8 second band.
func (m *Manager) responseTimeModifier(rt time.Duration) float64 {
	switch {
	case rt < time.Second:
		return -m.params.GuessPenalty
	case rt > 20*time.Second:
		return -m.params.StrugglePenalty
	case rt >= 2*time.Second && rt <= 8*time.Second:
		return m.params.OptimalTimeBonus
	default:
		return 0
	}
}

// nextFatigue adds this turn's fatigue onto the previous index. The time
// component is the growth of min(1, minutes/FatigueMinutes) since the last
// processed response, so elapsed time is only counted once.
func (m *Manager) nextFatigue(state *domain.SessionState, resp domain.ResponseLog, minutes float64) float64 {
	p := m.params

	previous := state.SessionMinutes(state.LastActivity())
	timeFatigue := math.Min(1, minutes/p.FatigueMinutes) - math.Min(1, previous/p.FatigueMinutes)
	increment := math.Max(0, timeFatigue)

	switch rt := resp.ResponseTime(); {
	case rt > 20*time.Second:
		increment += p.VerySlowFatigue
	case rt > 10*time.Second:
		increment += p.SlowFatigue
	}

	switch resp.Rating {
	case domain.RatingAgain:
		increment += p.AgainFatigue
	case domain.RatingHard:
		increment += p.HardFatigue
	}

	increment += (1 - numeric.Clamp01(resp.Context.CognitiveLoad)) * p.LoadFatigue
	increment += m.environmentalFatigue(resp.Context.Environment)

	fatigue := math.Min(1, numeric.Clamp01(state.FatigueIndex)+increment)
	if resp.Rating == domain.RatingEasy {
		fatigue -= p.EasyRecovery
	}
	return math.Max(0, fatigue)
}

func (m *Manager) environmentalFatigue(env domain.EnvironmentalContext) float64 {
	p := m.params
	f := 0.0
	switch {
	case env.Offline():
		f += p.OfflineFatigue
	case env.PoorNetwork():
		f += p.PoorNetworkFatigue
	}
	if env.Mobile() {
		f += p.MobileFatigue
	}
	if env.LowBattery {
		f += p.LowBatteryFatigue
	}
	if env.Noisy() {
		f += p.NoisyFatigue
	}
	if env.LightingKnown() && !env.OptimalLighting() {
		f += p.LightingFatigue
	}
	return f
}

func (m *Manager) nextCapacity(previous float64, rating domain.Rating, fatigue, minutes float64) float64 {
	p := m.params
	capacity := math.Max(p.MinBaseCapacity, 1-minutes/p.CapacityMinutes)
	switch rating {
	case domain.RatingAgain:
		capacity -= p.AgainCapacity
	case domain.RatingEasy:
		capacity += p.EasyCapacity
	}
	capacity -= fatigue * p.FatigueCapacity
	capacity = numeric.Clamp(capacity, 0.1, 1)

	smoothed := numeric.Clamp(previous, 0.1, 1)*p.CapacityMemory + capacity*(1-p.CapacityMemory)
	return numeric.Clamp(smoothed, 0.1, 1)
}

func (m *Manager) nextAttention(rating domain.Rating, fatigue, minutes float64) float64 {
	p := m.params
	attention := math.Max(0, 1-minutes/p.AttentionMinutes)
	attention *= 1 - fatigue*p.FatigueAttention
	switch rating {
	case domain.RatingAgain:
		attention *= p.AgainAttention
	case domain.RatingEasy:
		attention *= p.EasyAttention
	}
	return numeric.Clamp01(attention)
}

func (m *Manager) trend(previous, current float64) domain.MomentumTrend {
	switch delta := current - previous; {
	case delta > m.params.TrendThreshold:
		return domain.MomentumImproving
	case delta < -m.params.TrendThreshold:
		return domain.MomentumDeclining
	default:
		return domain.MomentumStable
	}
}

// annotateOutcome fills in the outcome of the most recent pending selection
// of the answered card.
func annotateOutcome(history []domain.AdaptationEntry, resp domain.ResponseLog) []domain.AdaptationEntry {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].CardID == resp.CardID && history[i].Outcome == "" {
			history[i].Outcome = domain.OutcomeForRating(resp.Rating)
			break
		}
	}
	return history
}
