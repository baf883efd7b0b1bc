package selection

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/domain"
)

type scored struct {
	card  *domain.Card
	score float64
}

// outcome is what a strategy produced: candidates ranked best first plus the
// metadata that ends up in the result.
type outcome struct {
	ranked     []scored
	applied    Strategy
	fallback   bool
	confidence float64
	reason     string
	params     map[string]float64
}

// rank scores every card and sorts best first. Ties keep input order so the
// result is deterministic.
func rank(cards []*domain.Card, score func(*domain.Card) float64) []scored {
	out := make([]scored, len(cards))
	for i, c := range cards {
		out[i] = scored{card: c, score: score(c)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

func filter(cards []*domain.Card, keep func(*domain.Card) bool) []*domain.Card {
	var out []*domain.Card
	for _, c := range cards {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func successRatio(c *domain.Card, n int) float64 {
	recent := c.RecentRatings(n)
	if len(recent) == 0 {
		return 0
	}
	ok := 0
	for _, r := range recent {
		if r.IsSuccess() {
			ok++
		}
	}
	return float64(ok) / float64(len(recent))
}

// ratingsConsistent reports whether the last three stored ratings agree.
func ratingsConsistent(c *domain.Card) bool {
	r := c.RecentRatings(3)
	return len(r) == 3 && r[0] == r[1] && r[1] == r[2]
}

// apply dispatches to the selection function of strategy.
func (s *Selector) apply(strategy Strategy, state *domain.SessionState, cards []*domain.Card, now time.Time) outcome {
	switch strategy {
	case StrategyCrisisIntervention:
		return s.crisisIntervention(cards)
	case StrategyCriticalFatigue:
		return s.criticalFatigue(cards)
	case StrategyHighPerformance:
		return s.highPerformance(state, cards)
	case StrategyFlowMaintenance:
		return s.flowMaintenance(state, cards, now)
	case StrategyEngagementInjection:
		return s.engagementInjection(state, cards, now)
	default:
		return s.balanced(state, cards, now)
	}
}

// crisisIntervention serves a confidence booster: a well-known, stable, easy
// card the learner is not struggling with.
func (s *Selector) crisisIntervention(cards []*domain.Card) outcome {
	boosters := filter(cards, func(c *domain.Card) bool {
		return c.Retrievability > 0.8 &&
			c.Stability > 5 &&
			c.Difficulty < 6 &&
			c.ConfidenceLevel != domain.ConfidenceStruggling
	})
	if len(boosters) > 0 {
		return outcome{
			ranked: rank(boosters, func(c *domain.Card) float64 {
				score := 40*c.Retrievability +
					2*math.Min(20, c.Stability) +
					3*(10-c.Difficulty) +
					10*successRatio(c, 3)
				if c.ConfidenceLevel == domain.ConfidenceOptimal {
					score += 10
				}
				return score
			}),
			applied:    StrategyCrisisIntervention,
			confidence: s.params.CrisisConfidence,
			reason:     "momentum is low and falling; serving a confidence booster",
		}
	}
	return outcome{
		ranked:     rank(cards, func(c *domain.Card) float64 { return -c.Difficulty }),
		applied:    StrategyCrisisIntervention,
		fallback:   true,
		confidence: s.params.CrisisFallbackConfidence,
		reason:     "momentum is low and falling; no confidence booster available, serving the easiest card",
	}
}

// criticalFatigue favours the most recallable, least difficult card.
func (s *Selector) criticalFatigue(cards []*domain.Card) outcome {
	return outcome{
		ranked: rank(cards, func(c *domain.Card) float64 {
			return c.Retrievability - c.Difficulty/10
		}),
		applied:    StrategyCriticalFatigue,
		confidence: s.params.FatigueConfidence,
		reason:     "fatigue is critical; serving the lightest card available",
	}
}

// highPerformance matches difficulty to what the learner can currently
// handle, preferring cards at moderate recall probability.
func (s *Selector) highPerformance(state *domain.SessionState, cards []*domain.Card) outcome {
	target := (4 + 4*state.MomentumScore) * state.CognitiveLoadCapacity * (1 - state.FatigueIndex)
	params := map[string]float64{"target_difficulty": target}

	window := filter(cards, func(c *domain.Card) bool {
		return c.Retrievability > 0.3 && c.Retrievability < 0.85
	})
	if len(window) > 0 {
		return outcome{
			ranked: rank(window, func(c *domain.Card) float64 {
				score := 10 - 2*math.Abs(c.Difficulty-target)
				score += 2 * (1 - math.Min(1, math.Abs(c.Retrievability-0.6)/0.3))
				switch c.ConfidenceLevel {
				case domain.ConfidenceBuilding:
					score++
				case domain.ConfidenceStruggling:
					score -= 2
				}
				return score
			}),
			applied:    StrategyHighPerformance,
			confidence: s.params.ChallengeConfidence,
			reason:     fmt.Sprintf("momentum is high; challenging at difficulty %.1f", target),
			params:     params,
		}
	}
	return outcome{
		ranked:     rank(cards, func(c *domain.Card) float64 { return -math.Abs(c.Difficulty - target) }),
		applied:    StrategyHighPerformance,
		fallback:   true,
		confidence: s.params.ChallengeFallbackConfidence,
		reason:     fmt.Sprintf("momentum is high; closest match to difficulty %.1f", target),
		params:     params,
	}
}

// flowMaintenance keeps difficulty near the momentum-derived target and
// recall probability near 0.7.
func (s *Selector) flowMaintenance(state *domain.SessionState, cards []*domain.Card, now time.Time) outcome {
	target := state.MomentumScore * 10
	const tolerance = 1.0

	inFlow := filter(cards, func(c *domain.Card) bool {
		return math.Abs(c.Difficulty-target) <= tolerance &&
			c.Retrievability > 0.4 && c.Retrievability < 0.9
	})
	if len(inFlow) == 0 {
		out := s.balanced(state, cards, now)
		out.applied = StrategyFlowMaintenance
		out.fallback = true
		out.confidence = s.params.FlowFallbackConfidence
		out.reason = "in flow but no card near the target difficulty; " + out.reason
		return out
	}

	return outcome{
		ranked: rank(inFlow, func(c *domain.Card) float64 {
			score := 5 * (1 - math.Abs(c.Difficulty-target)/tolerance)
			score += 5 * (1 - math.Abs(c.Retrievability-0.7)/0.3)
			if c.ConfidenceLevel == domain.ConfidenceOptimal || c.ConfidenceLevel == domain.ConfidenceBuilding {
				score += 2
			}
			if ratingsConsistent(c) {
				score++
			}
			return score
		}),
		applied:    StrategyFlowMaintenance,
		confidence: s.params.FlowConfidence,
		reason:     fmt.Sprintf("maintaining flow near difficulty %.1f", target),
		params:     map[string]float64{"target_difficulty": target},
	}
}

// engagementInjection serves something interesting: novel in this session,
// illustrated, or of a non-basic type.
func (s *Selector) engagementInjection(state *domain.SessionState, cards []*domain.Card, now time.Time) outcome {
	seen := make(map[uuid.UUID]struct{})
	for _, e := range state.RecentAdaptations(s.params.NoveltyLookback) {
		seen[e.CardID] = struct{}{}
	}
	novel := func(c *domain.Card) bool {
		_, ok := seen[c.ID]
		return !ok
	}
	score := func(c *domain.Card) float64 {
		score := 0.25*c.Retrievability - 0.05*math.Abs(c.Difficulty-5)
		if novel(c) {
			score += 0.3
		}
		if c.HasMedia() {
			score += 0.2
		}
		if c.IsSpecialType() {
			score += 0.15
		}
		return score
	}

	interesting := filter(cards, func(c *domain.Card) bool {
		return c.Difficulty < 7 && c.Retrievability > 0.5 &&
			(novel(c) || c.HasMedia() || c.IsSpecialType())
	})
	if len(interesting) > 0 {
		return outcome{
			ranked:     rank(interesting, score),
			applied:    StrategyEngagementInjection,
			confidence: s.params.EngagementConfidence,
			reason:     "engagement is low; injecting something fresh",
		}
	}

	moderate := filter(cards, func(c *domain.Card) bool {
		return c.Difficulty >= 4 && c.Difficulty <= 6 && c.Retrievability > 0.5
	})
	if len(moderate) > 0 {
		return outcome{
			ranked:     rank(moderate, score),
			applied:    StrategyEngagementInjection,
			fallback:   true,
			confidence: s.params.EngagementFallbackConfidence,
			reason:     "engagement is low; serving a moderate card",
		}
	}

	out := s.balanced(state, cards, now)
	out.applied = StrategyEngagementInjection
	out.fallback = true
	out.confidence = s.params.EngagementFallbackConfidence
	out.reason = "engagement is low but nothing stands out; " + out.reason
	return out
}

// balanced weighs review urgency, forgetting risk, difficulty fit, fragile
// memories and poor past performance.
func (s *Selector) balanced(state *domain.SessionState, cards []*domain.Card, now time.Time) outcome {
	fit := state.MomentumScore * 8
	return outcome{
		ranked: rank(cards, func(c *domain.Card) float64 {
			score := math.Min(20, 2*c.DaysOverdue(now))
			score += 15 * (1 - c.Retrievability)
			score += math.Max(0, 10-math.Abs(c.Difficulty-fit))
			score += 0.5 * math.Max(0, 10-c.Stability)
			if len(c.PerformanceHistory) > 0 && c.AverageRating() < 2.5 {
				score += 5
			}
			return score
		}),
		applied:    StrategyBalanced,
		confidence: s.params.BalancedConfidence,
		reason:     "balancing urgency, retention risk and difficulty fit",
		params:     map[string]float64{"difficulty_fit": fit},
	}
}
