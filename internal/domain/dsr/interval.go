package dsr

import (
	"math"
	"time"

	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/domain/numeric"
)

// OptimalInterval returns the number of whole days until the card's recall
// probability is expected to drop to targetRetention.
//
// The base interval is stability*ln(1/(1-targetRetention)). It is scaled by
// the card's contextual difficulty at the given time (inverted, so a card
// that is harder at this hour gets a shorter interval), by its cognitive load
// index and by its stability trend. The result is rounded and never shorter
// than one day. A targetRetention outside (0,1) falls back to the default.
func (e *Engine) OptimalInterval(card *domain.Card, targetRetention float64, at time.Time) int {
	p := e.params
	if targetRetention <= 0 || targetRetention >= 1 || math.IsNaN(targetRetention) {
		targetRetention = domain.DefaultTargetRetention
	}

	s := math.Max(card.Stability, domain.MinStability)
	interval := s * math.Log(1/(1-targetRetention))
	interval *= e.contextualModifier(card, at)
	interval *= math.Max(p.MinIntervalLoadModifier, 1-p.IntervalLoadWeight*numeric.Clamp01(card.CognitiveLoadIndex))
	interval *= e.trendModifier(card.StabilityTrend)

	days := int(math.Round(interval))
	if days < 1 {
		return 1
	}
	if days > p.MaxIntervalDays {
		return p.MaxIntervalDays
	}
	return days
}

// contextualModifier inverts the mean of the hour and weekday difficulty
// multipliers recorded for the card. Cards without data are neutral.
func (e *Engine) contextualModifier(card *domain.Card, at time.Time) float64 {
	var lookups []float64
	if v, ok := card.ContextualDifficulty.ByHour[at.Hour()]; ok && v > 0 {
		lookups = append(lookups, v)
	}
	if v, ok := card.ContextualDifficulty.ByWeekday[at.Weekday()]; ok && v > 0 {
		lookups = append(lookups, v)
	}
	if len(lookups) == 0 {
		return 1
	}
	return numeric.Clamp(1/numeric.Mean(lookups), e.params.MinContextualModifier, e.params.MaxContextualModifier)
}

func (e *Engine) trendModifier(trend domain.StabilityTrend) float64 {
	switch trend {
	case domain.StabilityIncreasing:
		return e.params.IncreasingTrendModifier
	case domain.StabilityDecreasing:
		return e.params.DecreasingTrendModifier
	default:
		return 1
	}
}

// Apply derives the next version of card from a calculation result. The
// response is appended to the rolling history, review bookkeeping and the
// derived confidence level are refreshed and the next review is scheduled
// OptimalInterval days after the answer. The input card is left untouched.
func (e *Engine) Apply(card *domain.Card, resp domain.ResponseLog, res Result, targetRetention float64) *domain.Card {
	next := card.Clone()

	next.StabilityTrend = stabilityTrend(card.Stability, res.Stability)
	next.Difficulty = res.Difficulty
	next.Stability = res.Stability
	next.Retrievability = res.Retrievability

	if resp.ResponseTimeMS > 0 {
		total := card.AverageResponseTimeMS * float64(card.ReviewCount)
		next.AverageResponseTimeMS = (total + float64(resp.ResponseTimeMS)) / float64(card.ReviewCount+1)
	}
	next.PerformanceHistory = card.AppendHistory(resp)
	next.ConfidenceLevel = domain.DeriveConfidenceLevel(next.PerformanceHistory)
	next.ReviewCount = card.ReviewCount + 1
	next.LastReviewedAt = resp.Timestamp
	next.UpdatedAt = resp.Timestamp

	days := e.OptimalInterval(next, targetRetention, resp.Timestamp)
	next.NextReviewAt = resp.Timestamp.AddDate(0, 0, days)
	return next
}
