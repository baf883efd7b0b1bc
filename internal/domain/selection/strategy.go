package selection

import (
	"github.com/phrazzld/scry-uams/internal/domain"
)

// Strategy identifies one of the selection strategies. Strategies are
// evaluated in descending priority; the first whose condition matches the
// session state picks the card.
type Strategy string

// Selection strategies, highest priority first.
const (
	StrategyCrisisIntervention  Strategy = "crisis_intervention"
	StrategyCriticalFatigue     Strategy = "critical_fatigue_management"
	StrategyHighPerformance     Strategy = "high_performance_challenge"
	StrategyFlowMaintenance     Strategy = "flow_state_maintenance"
	StrategyEngagementInjection Strategy = "engagement_injection"
	StrategyBalanced            Strategy = "balanced_selection"
)

// Strategies lists every strategy in evaluation order.
var Strategies = []Strategy{
	StrategyCrisisIntervention,
	StrategyCriticalFatigue,
	StrategyHighPerformance,
	StrategyFlowMaintenance,
	StrategyEngagementInjection,
	StrategyBalanced,
}

// Priority returns the fixed dispatch priority.
func (s Strategy) Priority() int {
	switch s {
	case StrategyCrisisIntervention:
		return 100
	case StrategyCriticalFatigue:
		return 90
	case StrategyHighPerformance:
		return 80
	case StrategyFlowMaintenance:
		return 70
	case StrategyEngagementInjection:
		return 60
	case StrategyBalanced:
		return 1
	default:
		return 0
	}
}

// Kind maps the strategy onto the adaptation kind recorded in the history.
func (s Strategy) Kind() domain.AdaptationKind {
	switch s {
	case StrategyCrisisIntervention:
		return domain.AdaptationConfidence
	case StrategyCriticalFatigue:
		return domain.AdaptationFatigue
	case StrategyHighPerformance:
		return domain.AdaptationChallenge
	case StrategyFlowMaintenance:
		return domain.AdaptationFlow
	case StrategyEngagementInjection:
		return domain.AdaptationEngagement
	default:
		return domain.AdaptationBalance
	}
}

// Matches reports whether the strategy's trigger condition holds.
func (s Strategy) Matches(state *domain.SessionState) bool {
	switch s {
	case StrategyCrisisIntervention:
		return state.MomentumScore < 0.3 && state.MomentumTrend == domain.MomentumDeclining
	case StrategyCriticalFatigue:
		return state.FatigueIndex > 0.9
	case StrategyHighPerformance:
		return state.MomentumScore > 0.8 && state.FatigueIndex < 0.5
	case StrategyFlowMaintenance:
		return state.FlowState.MomentumMaintenance && state.FatigueIndex < 0.6
	case StrategyEngagementInjection:
		return state.FlowState.EngagementLevel < 0.4
	case StrategyBalanced:
		return true
	default:
		return false
	}
}

// Choose returns the first strategy, in priority order, whose condition
// matches state. Balanced selection always matches.
func Choose(state *domain.SessionState) Strategy {
	for _, s := range Strategies {
		if s.Matches(state) {
			return s
		}
	}
	return StrategyBalanced
}
