// Package selection picks the next card of a study session.
//
// Candidates pass through two filters (anti-clustering and a cognitive load
// ceiling) before one of six strategies, chosen by fixed priority from the
// session state, ranks them. Filters that would leave nothing to study
// degrade to the looser candidate set instead of failing.
package selection

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/phrazzld/scry-uams/internal/domain"
)

// Errors returned by the selector.
var (
	// ErrNoCandidates is returned when SelectNext is called without cards.
	ErrNoCandidates = errors.New("no candidate cards")

	// ErrFiltersExhausted is returned in strict mode when a filter removes
	// every candidate.
	ErrFiltersExhausted = errors.New("selection filters removed every candidate")
)

// Warnings recorded when a filter falls back to a looser candidate set.
const (
	WarningClusterFallback = "anti_clustering_fallback"
	WarningLoadFallback    = "cognitive_load_fallback"
)

// Result is the outcome of a selection.
type Result struct {
	Card         *domain.Card       `json:"card"`
	Strategy     Strategy           `json:"strategy"`
	Explanation  string             `json:"explanation"`
	Reasoning    []string           `json:"reasoning"`
	Confidence   float64            `json:"confidence"`
	Alternatives []*domain.Card     `json:"alternatives,omitempty"`
	Fallback     bool               `json:"fallback"`
	Warnings     []string           `json:"warnings,omitempty"`
	Parameters   map[string]float64 `json:"parameters,omitempty"`
}

// Entry converts the result into the adaptation-history record the caller
// appends to the session.
func (r *Result) Entry(now time.Time, algorithmVersion string) domain.AdaptationEntry {
	return domain.AdaptationEntry{
		Timestamp:        now.UTC(),
		CardID:           r.Card.ID,
		Strategy:         string(r.Strategy),
		Kind:             r.Strategy.Kind(),
		Reason:           r.Explanation,
		AlgorithmVersion: algorithmVersion,
		Parameters:       r.Parameters,
		ContentSample:    contentSample(r.Card),
	}
}

// contentSample keeps enough of the card text for later similarity checks.
func contentSample(c *domain.Card) string {
	const maxSample = 280
	text := []rune(c.ContentText())
	if len(text) > maxSample {
		text = text[:maxSample]
	}
	return string(text)
}

// Selector picks cards for a session. It holds no per-session state.
type Selector struct {
	params *Params
	logger *slog.Logger
}

// NewSelector creates a selector. Nil params select the defaults and a nil
// logger selects slog.Default().
func NewSelector(params *Params, logger *slog.Logger) *Selector {
	if params == nil {
		params = NewDefaultParams()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		params: params,
		logger: logger.With(slog.String("component", "card_selector")),
	}
}

// Strict returns a copy of the selector that reports filter exhaustion as
// ErrFiltersExhausted rather than degrading.
func (s *Selector) Strict() *Selector {
	p := *s.params
	p.StrictFilters = true
	return &Selector{params: &p, logger: s.logger}
}

// SelectNext picks the next card for the session from candidates.
//
// It never modifies state or the cards; recording the decision in the
// adaptation history is the caller's job (see Result.Entry).
func (s *Selector) SelectNext(state *domain.SessionState, candidates []*domain.Card, now time.Time) (*Result, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	var warnings, reasoning []string

	declustered := s.antiCluster(state, candidates)
	if len(declustered) == 0 {
		if s.params.StrictFilters {
			return nil, fmt.Errorf("%w: anti-clustering", ErrFiltersExhausted)
		}
		s.logger.Warn("anti-clustering removed every candidate, using unfiltered set",
			slog.String("session_id", state.ID.String()),
			slog.Int("candidates", len(candidates)))
		warnings = append(warnings, WarningClusterFallback)
		declustered = candidates
	}
	reasoning = append(reasoning,
		fmt.Sprintf("%d of %d candidates passed anti-clustering", len(declustered), len(candidates)))

	ceiling := s.maxAllowableLoad(state)
	manageable := filter(declustered, func(c *domain.Card) bool {
		return s.EstimatedLoad(c) <= ceiling
	})
	if len(manageable) == 0 {
		if s.params.StrictFilters {
			return nil, fmt.Errorf("%w: cognitive load", ErrFiltersExhausted)
		}
		s.logger.Warn("cognitive load ceiling removed every candidate, using declustered set",
			slog.String("session_id", state.ID.String()),
			slog.Float64("max_allowable_load", ceiling),
			slog.Int("candidates", len(declustered)))
		warnings = append(warnings, WarningLoadFallback)
		manageable = declustered
	}
	reasoning = append(reasoning,
		fmt.Sprintf("%d cards within load ceiling %.2f", len(manageable), ceiling))

	strategy := Choose(state)
	out := s.apply(strategy, state, manageable, now)
	reasoning = append(reasoning, fmt.Sprintf("strategy %s (priority %d)", strategy, strategy.Priority()))
	if out.fallback {
		reasoning = append(reasoning, "primary criteria matched nothing; used fallback ranking")
	}

	params := map[string]float64{
		"momentum":           state.MomentumScore,
		"fatigue":            state.FatigueIndex,
		"capacity":           state.CognitiveLoadCapacity,
		"max_allowable_load": ceiling,
	}
	for k, v := range out.params {
		params[k] = v
	}

	res := &Result{
		Card:        out.ranked[0].card,
		Strategy:    out.applied,
		Explanation: out.reason,
		Reasoning:   reasoning,
		Confidence:  out.confidence,
		Fallback:    out.fallback,
		Warnings:    warnings,
		Parameters:  params,
	}
	for _, alt := range out.ranked[1:] {
		if len(res.Alternatives) == s.params.MaxAlternatives {
			break
		}
		res.Alternatives = append(res.Alternatives, alt.card)
	}
	return res, nil
}

// antiCluster drops cards related to any of the most recent selections: the
// same card, a linked concept, near-identical content, or a card whose last
// cluster review falls within ClusterWindow of the selection.
func (s *Selector) antiCluster(state *domain.SessionState, cards []*domain.Card) []*domain.Card {
	recent := state.RecentAdaptations(s.params.ClusterLookback)
	if len(recent) == 0 {
		return cards
	}
	return filter(cards, func(c *domain.Card) bool {
		for _, e := range recent {
			if s.clustered(c, e) {
				return false
			}
		}
		return true
	})
}

func (s *Selector) clustered(c *domain.Card, e domain.AdaptationEntry) bool {
	if c.ID == e.CardID || c.IsConceptSimilar(e.CardID) {
		return true
	}
	if e.ContentSample != "" && ContentSimilarity(c.ContentText(), e.ContentSample) >= s.params.SimilarityThreshold {
		return true
	}
	if !c.LastClusterReview.IsZero() && !e.Timestamp.IsZero() {
		gap := c.LastClusterReview.Sub(e.Timestamp)
		if gap < 0 {
			gap = -gap
		}
		if gap < s.params.ClusterWindow {
			return true
		}
	}
	return false
}

// maxAllowableLoad is the load ceiling for the session's current condition.
func (s *Selector) maxAllowableLoad(state *domain.SessionState) float64 {
	ceiling := state.CognitiveLoadCapacity *
		(1 - s.params.FatigueLoadShrink*state.FatigueIndex) *
		state.AttentionSpanRemaining
	return math.Max(s.params.MinAllowableLoad, ceiling)
}

// EstimatedLoad estimates the cognitive load of studying c: its difficulty
// (or stored load index, whichever is higher), content complexity and the
// effort of recalling a fading memory.
func (s *Selector) EstimatedLoad(c *domain.Card) float64 {
	base := math.Max(c.Difficulty/10, c.CognitiveLoadIndex)
	complexity := math.Min(1, float64(len(c.ContentText()))/s.params.ContentLengthNorm)
	return base + complexity*s.params.ComplexityWeight + (1-c.Retrievability)*s.params.RetrievabilityLoad
}
