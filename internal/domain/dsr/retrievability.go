package dsr

import (
	"math"

	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/domain/numeric"
)

// retrievability estimates recall probability at the time of the answer from
// the forgetting curve over the previous stability, then applies the load,
// fatigue and performance-trend modifiers.
func (e *Engine) retrievability(card *domain.Card, resp domain.ResponseLog, adj *Adjustments) float64 {
	p := e.params
	ctx := resp.Context

	base := decay(elapsedDays(card, resp), card.Stability)
	adj.DecayRetrievability = base

	load := 1 - p.LoadRetrievability*(1-numeric.Clamp01(ctx.CognitiveLoad))
	fatigue := 1 - p.FatigueRetrievability*numeric.Clamp01(ctx.SessionFatigue)
	adj.TrendModifier = 1 + p.TrendRetrievability*numeric.Slope(ratingHistory(card, resp.Rating, p.TrendWindow))

	r := base * load * fatigue * adj.TrendModifier
	return numeric.Clamp(r, p.MinRetrievability, p.MaxRetrievability)
}

// confidence rates how much the estimate can be trusted. The history bonus
// counts stored answers only, not the one being scored.
func (e *Engine) confidence(card *domain.Card, resp domain.ResponseLog) float64 {
	c := 0.7

	switch n := len(card.PerformanceHistory); {
	case n > 10:
		c += 0.2
	case n > 5:
		c += 0.1
	}

	recent := ratingHistory(card, resp.Rating, 3)
	if len(recent) == 3 && recent[0] == recent[1] && recent[1] == recent[2] {
		c += 0.1
	}

	if resp.ResponseTimeMS > 1000 && resp.ResponseTimeMS < 30000 {
		c += 0.1
	}

	return math.Min(c, 1)
}

// stabilityTrend classifies a stability change, treating moves within 5% as
// stable.
func stabilityTrend(old, updated float64) domain.StabilityTrend {
	switch {
	case old <= 0:
		return domain.StabilityStable
	case updated > old*1.05:
		return domain.StabilityIncreasing
	case updated < old*0.95:
		return domain.StabilityDecreasing
	default:
		return domain.StabilityStable
	}
}
