package cogload

import (
	"math"
	"time"

	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/domain/numeric"
)

func lastResponses(history []domain.ResponseLog, n int) []domain.ResponseLog {
	if n < len(history) {
		return history[len(history)-n:]
	}
	return history
}

// responseVariance is the coefficient of variation of recent response times,
// normalized so that a CV of VarianceNormalizer saturates the factor.
func (c *Calculator) responseVariance(history []domain.ResponseLog) float64 {
	var times []float64
	for _, r := range lastResponses(history, c.params.HistoryWindow) {
		if r.ResponseTimeMS > 0 {
			times = append(times, float64(r.ResponseTimeMS))
		}
	}
	return numeric.Clamp01(numeric.CoefficientOfVariation(times) / c.params.VarianceNormalizer)
}

// errorRate penalizes lapses quadratically so bursts of errors dominate.
func (c *Calculator) errorRate(history []domain.ResponseLog) float64 {
	recent := lastResponses(history, c.params.HistoryWindow)
	if len(recent) == 0 {
		return 0
	}
	lapses := 0
	for _, r := range recent {
		if r.Rating == domain.RatingAgain {
			lapses++
		}
	}
	rate := float64(lapses) / float64(len(recent))
	return math.Min(1, (2*rate)*(2*rate))
}

// difficultyAccumulation measures how far the perceived difficulty of recent
// answers sits above the comfort threshold.
func (c *Calculator) difficultyAccumulation(history []domain.ResponseLog) float64 {
	p := c.params
	recent := lastResponses(history, p.DifficultyWindow)
	if len(recent) == 0 {
		return 0
	}
	estimates := make([]float64, len(recent))
	for i, r := range recent {
		estimates[i] = perceivedDifficulty(r)
	}
	return numeric.Clamp01((numeric.Mean(estimates) - p.DifficultyThreshold) / p.DifficultyRange)
}

// perceivedDifficulty guesses how hard an answer felt from its rating and how
// long it took.
func perceivedDifficulty(r domain.ResponseLog) float64 {
	var d float64
	switch r.Rating {
	case domain.RatingAgain:
		d = 8
	case domain.RatingHard:
		d = 6.5
	case domain.RatingGood:
		d = 4.5
	default:
		d = 3
	}
	switch t := r.ResponseTime(); {
	case t > 15*time.Second:
		d++
	case t > 0 && t < 3*time.Second:
		d -= 0.5
	}
	return numeric.Clamp(d, domain.MinDifficulty, domain.MaxDifficulty)
}

// environmentalStress reads the environment of the most recent answer.
func (c *Calculator) environmentalStress(history []domain.ResponseLog) float64 {
	if len(history) == 0 {
		return 0
	}
	p := c.params
	env := history[len(history)-1].Context.Environment
	stress := 0.0
	switch {
	case env.Offline():
		stress += p.OfflineStress
	case env.PoorNetwork():
		stress += p.PoorNetworkStress
	}
	if env.Mobile() {
		stress += p.MobileStress
	}
	if env.LowBattery {
		stress += p.LowBatteryStress
	}
	if env.Noisy() {
		stress += p.NoisyStress
	}
	if env.LightingKnown() && !env.OptimalLighting() {
		stress += p.LightingStress
	}
	return math.Min(1, stress)
}

// contextualDemand adds time-of-day, session-length and momentum pressure.
func (c *Calculator) contextualDemand(state *domain.SessionState, minutes float64, now time.Time) float64 {
	p := c.params
	demand := 0.0

	hour := now.Hour()
	switch {
	case hour < 8 || hour >= 22:
		demand += p.OffHoursDemand
	case hour >= 13 && hour < 15:
		demand += p.AfternoonDipDemand
	}

	if minutes > p.LongSessionMinutes {
		// reaches the maximum after a further LongSessionMinutes
		extra := (minutes - p.LongSessionMinutes) / p.LongSessionMinutes * p.MaxLongSessionDemand
		demand += math.Min(p.MaxLongSessionDemand, extra)
	}

	if state.MomentumTrend == domain.MomentumDeclining {
		demand += p.DecliningMomentumDemand
	}
	return numeric.Clamp01(demand)
}
