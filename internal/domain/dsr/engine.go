// Package dsr estimates the memory state of a card after an answer.
//
// The engine combines an FSRS-style base update with contextual signals
// captured alongside the response (session fatigue, cognitive load, time of
// day, device and surroundings) to produce a new difficulty, stability and
// retrievability triple. All functions are pure: inputs are never mutated and
// identical inputs always yield identical outputs.
package dsr

import (
	"github.com/phrazzld/scry-uams/internal/domain"
)

// Result is the outcome of a single DSR calculation.
type Result struct {
	Difficulty     float64     `json:"difficulty"`
	Stability      float64     `json:"stability"`
	Retrievability float64     `json:"retrievability"`
	Confidence     float64     `json:"confidence"`
	Explanation    string      `json:"explanation"`
	Adjustments    Adjustments `json:"adjustments"`
}

// Adjustments exposes the intermediate terms of a calculation for
// transparency and diagnostics.
type Adjustments struct {
	RawDifficulty       float64 `json:"raw_difficulty"`
	TimeOfDay           float64 `json:"time_of_day"`
	Environment         float64 `json:"environment"`
	ResponseTime        float64 `json:"response_time"`
	BaseStability       float64 `json:"base_stability"`
	FatigueModifier     float64 `json:"fatigue_modifier"`
	EnvironmentModifier float64 `json:"environment_modifier"`
	ConsistencyModifier float64 `json:"consistency_modifier"`
	DecayRetrievability float64 `json:"decay_retrievability"`
	TrendModifier       float64 `json:"trend_modifier"`
}

// Engine computes DSR updates using a fixed parameter set.
type Engine struct {
	params *Params
}

// NewEngine creates an engine with the given parameters. A nil params value
// selects the defaults.
func NewEngine(params *Params) *Engine {
	if params == nil {
		params = NewDefaultParams()
	}
	return &Engine{params: params}
}

// NewDefaultEngine creates an engine with default parameters.
func NewDefaultEngine() *Engine {
	return NewEngine(nil)
}

// Params returns the parameters the engine was built with.
func (e *Engine) Params() *Params {
	return e.params
}

// Calculate computes the memory state of card after resp. The profile may be
// nil; its FSRS parameters take precedence over the card's when present.
//
// The engine assumes well-formed input: callers validate cards and responses
// before they reach it. Every output is clamped to its valid range so a bad
// upstream value cannot drift across turns.
func (e *Engine) Calculate(card *domain.Card, resp domain.ResponseLog, profile *domain.UserProfile) Result {
	var adj Adjustments

	difficulty := e.difficulty(card, resp, &adj)
	stability := e.stability(card, resp, profile, &adj)
	retrievability := e.retrievability(card, resp, &adj)
	confidence := e.confidence(card, resp)

	return Result{
		Difficulty:     difficulty,
		Stability:      stability,
		Retrievability: retrievability,
		Confidence:     confidence,
		Explanation:    e.explain(card, resp, difficulty, stability, adj),
		Adjustments:    adj,
	}
}

// ratingHistory returns the card's stored ratings as 1..4 values with the
// current rating appended, limited to the trailing n entries.
func ratingHistory(card *domain.Card, current domain.Rating, n int) []float64 {
	prior := card.RecentRatings(n - 1)
	out := make([]float64, 0, len(prior)+1)
	for _, r := range prior {
		out = append(out, r.Value())
	}
	return append(out, current.Value())
}
