// Package cogload estimates how much of a learner's cognitive capacity a
// study session is currently consuming.
package cogload

import (
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/domain/numeric"
)

// AlertLevel grades how urgently the session needs to change course.
type AlertLevel string

// Alert levels, mildest first.
const (
	AlertGreen  AlertLevel = "green"
	AlertYellow AlertLevel = "yellow"
	AlertOrange AlertLevel = "orange"
	AlertRed    AlertLevel = "red"
)

// Recommendation texts.
const (
	RecommendReduceDifficulty  = "reduce difficulty: cognitive load exceeds capacity"
	RecommendEaseOff           = "ease off with familiar cards"
	RecommendIncreaseChallenge = "increase challenge: capacity is underused"
	RecommendTakeBreak         = "take a break to recover focus"
	RecommendWrapUp            = "fatigue is high: consider ending the session soon"
	RecommendShortBursts       = "attention is running low: switch to short review bursts"
	RecommendMaintain          = "cognitive load optimal: maintain current pace"
)

// Factors holds the six normalized load factors, each in [0,1].
type Factors struct {
	TimeFatigue            float64 `json:"time_fatigue"`
	ResponseVariance       float64 `json:"response_variance"`
	ErrorRate              float64 `json:"error_rate"`
	DifficultyAccumulation float64 `json:"difficulty_accumulation"`
	EnvironmentalStress    float64 `json:"environmental_stress"`
	ContextualDemand       float64 `json:"contextual_demand"`
}

func (f Factors) values() [6]float64 {
	return [6]float64{
		f.TimeFatigue,
		f.ResponseVariance,
		f.ErrorRate,
		f.DifficultyAccumulation,
		f.EnvironmentalStress,
		f.ContextualDemand,
	}
}

// Analysis is the result of a cognitive load calculation.
type Analysis struct {
	CurrentLoad                     float64    `json:"current_load"`
	Capacity                        float64    `json:"capacity"`
	UtilizationRate                 float64    `json:"utilization_rate"`
	RecommendedDifficultyAdjustment float64    `json:"recommended_difficulty_adjustment"`
	SustainabilityScore             float64    `json:"sustainability_score"`
	FatigueIndex                    float64    `json:"fatigue_index"`
	AlertLevel                      AlertLevel `json:"alert_level"`
	Factors                         Factors    `json:"factors"`
	Recommendations                 []string   `json:"recommendations"`
}

// Calculator computes cognitive load analyses. It holds no mutable state, so
// a single instance can serve any number of sessions concurrently.
type Calculator struct {
	params *Params
	logger *slog.Logger
}

// NewCalculator creates a calculator. Nil params select the defaults and a
// nil logger selects slog.Default().
func NewCalculator(params *Params, logger *slog.Logger) *Calculator {
	if params == nil {
		params = NewDefaultParams()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{
		params: params,
		logger: logger.With(slog.String("component", "cognitive_load")),
	}
}

// CurrentLoad analyses the session's load at now.
//
// history must be ordered oldest to newest; only the trailing window is used.
// A nil profile selects the default base capacity. A nil state is treated as
// a session that starts at now.
func (c *Calculator) CurrentLoad(
	history []domain.ResponseLog,
	state *domain.SessionState,
	profile *domain.UserProfile,
	now time.Time,
) Analysis {
	p := c.params
	if state == nil {
		state = domain.NewSessionState(uuid.Nil, now)
	}
	minutes := state.SessionMinutes(now)
	baseCapacity := profile.Capacity()

	factors := Factors{
		TimeFatigue:            1 - math.Exp(-minutes/p.FatigueTimeConstant),
		ResponseVariance:       c.responseVariance(history),
		ErrorRate:              c.errorRate(history),
		DifficultyAccumulation: c.difficultyAccumulation(history),
		EnvironmentalStress:    c.environmentalStress(history),
		ContextualDemand:       c.contextualDemand(state, minutes, now),
	}

	load := 0.0
	for i, f := range factors.values() {
		load += p.Weights[i] * f
	}
	load = numeric.Clamp01(load * (2 - baseCapacity))

	capacity := c.capacity(baseCapacity, state, now)
	utilization := load / capacity
	sustainability := c.sustainability(utilization, state, minutes)

	analysis := Analysis{
		CurrentLoad:                     load,
		Capacity:                        capacity,
		UtilizationRate:                 utilization,
		RecommendedDifficultyAdjustment: c.difficultyAdjustment(utilization),
		SustainabilityScore:             sustainability,
		FatigueIndex:                    numeric.Clamp01(state.FatigueIndex),
		AlertLevel:                      alertLevel(utilization, sustainability),
		Factors:                         factors,
	}
	analysis.Recommendations = recommendations(analysis, state)

	if analysis.AlertLevel == AlertRed {
		c.logger.Debug("cognitive load critical",
			slog.String("session_id", state.ID.String()),
			slog.Float64("utilization", utilization),
			slog.Float64("sustainability", sustainability))
	}

	return analysis
}

// capacity is the base capacity drained by fatigue and scaled by remaining
// attention and the hour-of-day multiplier.
func (c *Calculator) capacity(base float64, state *domain.SessionState, now time.Time) float64 {
	p := c.params
	capacity := base - p.CapacityFatigueDrain*numeric.Clamp01(state.FatigueIndex)
	capacity *= numeric.Clamp01(state.AttentionSpanRemaining)
	capacity *= p.HourCapacity[now.Hour()]
	return math.Max(capacity, p.MinCapacity)
}

func (c *Calculator) difficultyAdjustment(utilization float64) float64 {
	p := c.params
	switch {
	case utilization < p.OptimalUtilizationLow:
		return p.MaxIncrease * (p.OptimalUtilizationLow - utilization) / p.OptimalUtilizationLow
	case utilization > p.OptimalUtilizationHigh:
		// full decrease once utilization reaches OptimalUtilizationHigh + 0.5
		return -math.Min(p.MaxDecrease, p.MaxDecrease*(utilization-p.OptimalUtilizationHigh)/0.5)
	default:
		return 0
	}
}

func (c *Calculator) sustainability(utilization float64, state *domain.SessionState, minutes float64) float64 {
	p := c.params
	s := 1.0
	if utilization > p.StressThreshold {
		s -= 2 * (utilization - p.StressThreshold)
	}
	s *= numeric.Clamp01(state.AttentionSpanRemaining)

	switch state.MomentumTrend {
	case domain.MomentumImproving:
		s *= 1 + p.TrendAdjustment
	case domain.MomentumDeclining:
		s *= 1 - p.TrendAdjustment
	}

	if minutes > p.OvertimeMinutes {
		s *= math.Max(p.MinOvertimeFactor, 1-(minutes-p.OvertimeMinutes)/p.OvertimeSpan)
	}
	return numeric.Clamp01(s)
}

func alertLevel(utilization, sustainability float64) AlertLevel {
	switch {
	case utilization > 1.2 || sustainability < 0.2:
		return AlertRed
	case utilization > 0.9 || sustainability < 0.4:
		return AlertOrange
	case utilization > 0.7 || sustainability < 0.6:
		return AlertYellow
	default:
		return AlertGreen
	}
}

func recommendations(a Analysis, state *domain.SessionState) []string {
	var out []string
	switch {
	case a.UtilizationRate > 1:
		out = append(out, RecommendReduceDifficulty)
	case a.UtilizationRate > 0.8:
		out = append(out, RecommendEaseOff)
	case a.UtilizationRate < 0.3:
		out = append(out, RecommendIncreaseChallenge)
	}
	if a.SustainabilityScore < 0.4 {
		out = append(out, RecommendTakeBreak)
	}
	if state.FatigueIndex > 0.7 {
		out = append(out, RecommendWrapUp)
	}
	if state.AttentionSpanRemaining < 0.3 {
		out = append(out, RecommendShortBursts)
	}
	if len(out) == 0 {
		out = append(out, RecommendMaintain)
	}
	return out
}
