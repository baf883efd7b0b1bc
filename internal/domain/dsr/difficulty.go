package dsr

import (
	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/domain/numeric"
)

// difficulty blends a context-adjusted estimate for this answer with the
// card's previous difficulty.
//
// The raw estimate starts from the rating's base difficulty and adds the
// session fatigue and cognitive load at response time, a time-of-day term,
// environmental penalties and a response-time term. It is clamped to [1,10]
// and then smoothed: new = old*DifficultyMemory + raw*(1-DifficultyMemory).
func (e *Engine) difficulty(card *domain.Card, resp domain.ResponseLog, adj *Adjustments) float64 {
	p := e.params
	ctx := resp.Context

	raw := p.BaseDifficulty[resp.Rating]
	if raw == 0 {
		raw = domain.DefaultDifficulty
	}
	raw += p.FatigueDifficulty * numeric.Clamp01(ctx.SessionFatigue)
	raw += p.LoadDifficulty * (1 - numeric.Clamp01(ctx.CognitiveLoad))

	adj.TimeOfDay = p.HourDifficulty[resp.Timestamp.Hour()]
	adj.Environment = e.environmentDifficulty(ctx.Environment)
	adj.ResponseTime = e.responseTimeDifficulty(card, resp)
	raw += adj.TimeOfDay + adj.Environment + adj.ResponseTime

	raw = numeric.Clamp(raw, domain.MinDifficulty, domain.MaxDifficulty)
	adj.RawDifficulty = raw

	old := numeric.Clamp(card.Difficulty, domain.MinDifficulty, domain.MaxDifficulty)
	blended := old*p.DifficultyMemory + raw*(1-p.DifficultyMemory)
	return numeric.Clamp(blended, domain.MinDifficulty, domain.MaxDifficulty)
}

func (e *Engine) environmentDifficulty(env domain.EnvironmentalContext) float64 {
	p := e.params
	total := 0.0
	switch {
	case env.Offline():
		total += p.OfflinePenalty
	case env.PoorNetwork():
		total += p.PoorNetworkPenalty
	}
	if env.Mobile() {
		total += p.MobilePenalty
	}
	if env.LowBattery {
		total += p.LowBatteryPenalty
	}
	return total
}

// responseTimeDifficulty compares this answer's response time with the
// card's running average. Cards without any timing history get no term.
func (e *Engine) responseTimeDifficulty(card *domain.Card, resp domain.ResponseLog) float64 {
	avg := averageResponseTime(card)
	if avg <= 0 || resp.ResponseTimeMS <= 0 {
		return 0
	}

	p := e.params
	ratio := float64(resp.ResponseTimeMS) / avg
	switch {
	case ratio > 2:
		return p.SlowResponsePenalty
	case ratio > 1.5:
		return p.SlowerResponseFactor
	case ratio < 0.5:
		return p.FastResponseBonus
	case ratio < 0.7:
		return p.QuickResponseBonus
	default:
		return 0
	}
}

// averageResponseTime prefers the stored running average and falls back to
// the mean over the stored history.
func averageResponseTime(card *domain.Card) float64 {
	if card.AverageResponseTimeMS > 0 {
		return card.AverageResponseTimeMS
	}
	var times []float64
	for _, r := range card.PerformanceHistory {
		if r.ResponseTimeMS > 0 {
			times = append(times, float64(r.ResponseTimeMS))
		}
	}
	return numeric.Mean(times)
}
