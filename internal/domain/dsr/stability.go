package dsr

import (
	"math"

	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/domain/numeric"
)

// weights picks the FSRS parameter vector: the learner's personal weights
// first, then the card's, then the defaults. Vectors of the wrong length are
// skipped.
func weights(card *domain.Card, profile *domain.UserProfile) []float64 {
	if profile != nil && len(profile.FSRSParameters) == domain.FSRSParameterCount {
		return profile.FSRSParameters
	}
	if len(card.FSRSParameters) == domain.FSRSParameterCount {
		return card.FSRSParameters
	}
	return domain.DefaultFSRSParameters[:]
}

// stability computes the FSRS base update and applies the fatigue,
// environment and consistency modifiers.
func (e *Engine) stability(
	card *domain.Card,
	resp domain.ResponseLog,
	profile *domain.UserProfile,
	adj *Adjustments,
) float64 {
	p := e.params
	base := baseStability(card, resp, weights(card, profile))
	adj.BaseStability = base

	adj.FatigueModifier = 1 - p.FatigueStability*numeric.Clamp01(resp.Context.SessionFatigue)
	adj.EnvironmentModifier = e.environmentStability(resp.Context.Environment)
	adj.ConsistencyModifier = e.consistency(card, resp.Rating)

	s := base * adj.FatigueModifier * adj.EnvironmentModifier * adj.ConsistencyModifier
	return numeric.Clamp(s, domain.MinStability, p.MaxStabilityDays)
}

// baseStability is the FSRS stability update, starting from the card's
// current stability (DefaultStability for a new card).
//
// A lapse scales stability by w[11]. Successful recalls grow stability by a
// factor that falls as difficulty rises and grows with the time elapsed since
// the last review (through the lower retrievability at review time), so a
// card that has never been reviewed keeps its stability on a first success.
// Hard answers are damped by w[15] and easy answers boosted by w[16].
func baseStability(card *domain.Card, resp domain.ResponseLog, w []float64) float64 {
	s := math.Max(card.Stability, domain.MinStability)
	if resp.Rating == domain.RatingAgain {
		return math.Max(s*w[11], domain.MinStability)
	}

	d := numeric.Clamp(card.Difficulty, domain.MinDifficulty, domain.MaxDifficulty)
	r := decay(elapsedDays(card, resp), s)

	hardPenalty := 1.0
	if resp.Rating == domain.RatingHard {
		hardPenalty = w[15]
	}
	easyBonus := 1.0
	if resp.Rating == domain.RatingEasy {
		easyBonus = w[16]
	}
	growth := math.Exp(w[8]) *
		(11 - d) *
		math.Pow(s, -w[9]) *
		(math.Exp((1-r)*w[10]) - 1) *
		hardPenalty * easyBonus
	return s * (1 + growth)
}

// environmentStability rewards quiet, well-lit study and penalises noise and
// any lighting that is not known to be optimal. Unknown noise is neutral.
func (e *Engine) environmentStability(env domain.EnvironmentalContext) float64 {
	p := e.params
	m := 1.0
	switch {
	case env.Quiet():
		m *= 1 + p.QuietBonus
	case env.Noisy():
		m *= 1 - p.NoisyPenalty
	}
	if env.OptimalLighting() {
		m *= 1 + p.OptimalLightBonus
	} else {
		m *= 1 - p.PoorLightPenalty
	}
	return m
}

// consistency maps the variance of recent ratings onto [1-ConsistencyPenalty, 1].
// 2.25 is the largest variance possible on the 1..4 rating scale.
func (e *Engine) consistency(card *domain.Card, current domain.Rating) float64 {
	p := e.params
	ratings := ratingHistory(card, current, p.ConsistencyWindow)
	v := numeric.Variance(ratings)
	return 1 - p.ConsistencyPenalty*math.Min(1, v/2.25)
}

// elapsedDays is the time between the card's last review and this answer.
func elapsedDays(card *domain.Card, resp domain.ResponseLog) float64 {
	if card.LastReviewedAt.IsZero() {
		return 0
	}
	d := resp.Timestamp.Sub(card.LastReviewedAt).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

// decay is the exponential forgetting curve exp(-t/S).
func decay(days, stability float64) float64 {
	return math.Exp(-days / math.Max(stability, domain.MinStability))
}
