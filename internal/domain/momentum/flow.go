package momentum

import (
	"math"
	"time"

	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/domain/numeric"
)

// Recommended actions returned by AnalyzeMomentum.
const (
	ActionMaintain = "maintain"
	ActionBoost    = "boost"
	ActionEase     = "ease"
	ActionBreak    = "break"
)

// MomentumAnalysis is a read-only assessment of where the session is heading.
type MomentumAnalysis struct {
	Momentum          float64              `json:"momentum"`
	Trend             domain.MomentumTrend `json:"trend"`
	RecommendedAction string               `json:"recommended_action"`
	Sustainability    float64              `json:"sustainability"`
	Reason            string               `json:"reason"`
}

// FlowAnalysis is a read-only assessment of the session's flow state.
type FlowAnalysis struct {
	FlowScore       float64                 `json:"flow_score"`
	InFlow          bool                    `json:"in_flow"`
	Metrics         domain.FlowStateMetrics `json:"metrics"`
	Recommendations []string                `json:"recommendations"`
}

// FlowMetrics derives the flow snapshot from a session state at time at.
func (m *Manager) FlowMetrics(state *domain.SessionState, at time.Time) domain.FlowStateMetrics {
	p := m.params
	mom := numeric.Clamp01(state.MomentumScore)
	inBand := mom >= p.FlowBandLow && mom <= p.FlowBandHigh

	return domain.FlowStateMetrics{
		ChallengeSkillBalance:  challengeLevel(state.RecentAdaptations(3)) / math.Max(mom, 0.1),
		EngagementLevel:        engagement(state),
		SatisfactionPrediction: m.satisfaction(state, inBand, at),
		MomentumMaintenance:    inBand,
	}
}

// challengeLevel estimates the challenge the learner has been facing from
// the mix of challenge-type and confidence-type selections.
func challengeLevel(recent []domain.AdaptationEntry) float64 {
	challenge, confidence := 0, 0
	for _, e := range recent {
		switch e.Kind {
		case domain.AdaptationChallenge:
			challenge++
		case domain.AdaptationConfidence, domain.AdaptationFatigue:
			confidence++
		}
	}
	return numeric.Clamp(0.5+0.4*float64(challenge-confidence)/3, 0.1, 0.9)
}

func engagement(state *domain.SessionState) float64 {
	e := 0.5 +
		0.4*(state.MomentumScore-0.5) +
		0.3*(state.AttentionSpanRemaining-0.5) -
		0.2*(state.FatigueIndex-0.5) +
		0.1*(state.CognitiveLoadCapacity-0.5)
	return numeric.Clamp01(e)
}

func (m *Manager) satisfaction(state *domain.SessionState, inBand bool, at time.Time) float64 {
	s := 0.7
	if inBand {
		s += 0.2
	}

	judged, positive := 0, 0
	for _, e := range state.RecentAdaptations(5) {
		if e.Outcome == "" {
			continue
		}
		judged++
		if e.Outcome == domain.OutcomeOptimal || e.Outcome == domain.OutcomeGood {
			positive++
		}
	}
	if judged > 0 {
		s += 0.1 * float64(positive) / float64(judged)
	}

	s -= numeric.Clamp01(state.FatigueIndex) * 0.2
	if minutes := state.SessionMinutes(at); minutes < 5 || minutes > 60 {
		s -= 0.1
	}
	return numeric.Clamp01(s)
}

// AnalyzeMomentum recommends how the next few cards should be pitched.
func (m *Manager) AnalyzeMomentum(state *domain.SessionState) MomentumAnalysis {
	p := m.params
	sustainability := 0.4*state.AttentionSpanRemaining +
		0.3*state.CognitiveLoadCapacity +
		0.3*(1-state.FatigueIndex)
	switch state.MomentumTrend {
	case domain.MomentumImproving:
		sustainability += 0.1
	case domain.MomentumDeclining:
		sustainability -= 0.1
	}

	a := MomentumAnalysis{
		Momentum:       state.MomentumScore,
		Trend:          state.MomentumTrend,
		Sustainability: numeric.Clamp01(sustainability),
	}

	switch {
	case state.FatigueIndex > 0.8 || state.AttentionSpanRemaining < 0.2:
		a.RecommendedAction = ActionBreak
		a.Reason = "fatigue or attention has reached its limit"
	case state.MomentumScore < p.FlowBandLow:
		a.RecommendedAction = ActionBoost
		a.Reason = "momentum is below the flow band; build confidence with familiar cards"
	case state.FatigueIndex > 0.6 || state.CognitiveLoadCapacity < 0.4:
		a.RecommendedAction = ActionEase
		a.Reason = "capacity is shrinking; lower the difficulty"
	default:
		a.RecommendedAction = ActionMaintain
		a.Reason = "session is on track"
	}
	return a
}

// AnalyzeFlowState scores how close the session is to flow and lists what
// would move it closer.
func (m *Manager) AnalyzeFlowState(state *domain.SessionState) FlowAnalysis {
	f := state.FlowState
	balance := 1 - math.Min(1, math.Abs(f.ChallengeSkillBalance-1))
	score := numeric.Clamp01(0.4*balance + 0.3*f.EngagementLevel + 0.3*f.SatisfactionPrediction)

	var recs []string
	switch {
	case f.ChallengeSkillBalance > 1.2:
		recs = append(recs, "reduce challenge: difficulty outpaces current skill")
	case f.ChallengeSkillBalance < 0.8:
		recs = append(recs, "increase challenge to avoid boredom")
	}
	if f.EngagementLevel < 0.4 {
		recs = append(recs, "inject variety to lift engagement")
	}
	if f.SatisfactionPrediction < 0.5 {
		recs = append(recs, "serve familiar cards to rebuild confidence")
	}
	if !f.MomentumMaintenance {
		recs = append(recs, "steer momentum back into the flow band")
	}
	if len(recs) == 0 {
		recs = append(recs, "flow state healthy: keep going")
	}

	return FlowAnalysis{
		FlowScore:       score,
		InFlow:          score >= 0.7 && f.MomentumMaintenance,
		Metrics:         f,
		Recommendations: recs,
	}
}
