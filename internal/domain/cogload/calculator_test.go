package cogload

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func sessionStartedAgo(minutes int) *domain.SessionState {
	return domain.NewSessionState(uuid.New(), testNow.Add(-time.Duration(minutes)*time.Minute))
}

func responses(ratings []domain.Rating, ms int64) []domain.ResponseLog {
	out := make([]domain.ResponseLog, len(ratings))
	for i, r := range ratings {
		out[i] = domain.ResponseLog{
			ID:             uuid.New(),
			Rating:         r,
			ResponseTimeMS: ms,
			Timestamp:      testNow.Add(time.Duration(i-len(ratings)) * time.Minute),
		}
	}
	return out
}

func repeat(r domain.Rating, n int) []domain.Rating {
	out := make([]domain.Rating, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func TestCurrentLoadFreshSession(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(nil, nil)

	a := calc.CurrentLoad(nil, sessionStartedAgo(0), nil, testNow)

	assert.Zero(t, a.CurrentLoad)
	assert.Equal(t, 1.0, a.Capacity)
	assert.Zero(t, a.UtilizationRate)
	assert.Equal(t, 2.0, a.RecommendedDifficultyAdjustment)
	assert.Equal(t, 1.0, a.SustainabilityScore)
	assert.Equal(t, AlertGreen, a.AlertLevel)
	assert.Equal(t, []string{RecommendIncreaseChallenge}, a.Recommendations)
}

func TestCurrentLoadNilStateAndProfile(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(nil, nil)
	a := calc.CurrentLoad(nil, nil, nil, testNow)
	assert.Equal(t, AlertGreen, a.AlertLevel)
	assert.Zero(t, a.Factors.TimeFatigue)
}

func TestCurrentLoadFactors(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(nil, nil)

	t.Run("time fatigue", func(t *testing.T) {
		a := calc.CurrentLoad(nil, sessionStartedAgo(45), nil, testNow)
		assert.InDelta(t, 1-math.Exp(-1), a.Factors.TimeFatigue, 1e-9)
	})

	t.Run("error rate is quadratic", func(t *testing.T) {
		history := responses(append(repeat(domain.RatingAgain, 2), repeat(domain.RatingGood, 8)...), 4000)
		a := calc.CurrentLoad(history, sessionStartedAgo(5), nil, testNow)
		assert.InDelta(t, 0.16, a.Factors.ErrorRate, 1e-9)

		history = responses(append(repeat(domain.RatingAgain, 5), repeat(domain.RatingGood, 5)...), 4000)
		a = calc.CurrentLoad(history, sessionStartedAgo(5), nil, testNow)
		assert.Equal(t, 1.0, a.Factors.ErrorRate)
	})

	t.Run("only the last ten responses count", func(t *testing.T) {
		history := responses(append(repeat(domain.RatingAgain, 10), repeat(domain.RatingGood, 10)...), 4000)
		a := calc.CurrentLoad(history, sessionStartedAgo(5), nil, testNow)
		assert.Zero(t, a.Factors.ErrorRate)
	})

	t.Run("uniform response times have no variance", func(t *testing.T) {
		a := calc.CurrentLoad(responses(repeat(domain.RatingGood, 6), 4000), sessionStartedAgo(5), nil, testNow)
		assert.Zero(t, a.Factors.ResponseVariance)
	})

	t.Run("erratic response times saturate variance", func(t *testing.T) {
		history := responses(repeat(domain.RatingGood, 4), 1000)
		history[1].ResponseTimeMS = 20000
		history[3].ResponseTimeMS = 20000
		a := calc.CurrentLoad(history, sessionStartedAgo(5), nil, testNow)
		assert.Equal(t, 1.0, a.Factors.ResponseVariance)
	})

	t.Run("slow lapses accumulate difficulty", func(t *testing.T) {
		a := calc.CurrentLoad(responses(repeat(domain.RatingAgain, 5), 20000), sessionStartedAgo(5), nil, testNow)
		assert.InDelta(t, 0.75, a.Factors.DifficultyAccumulation, 1e-9)
	})

	t.Run("environmental stress is capped", func(t *testing.T) {
		history := responses([]domain.Rating{domain.RatingGood}, 4000)
		history[0].Context.Environment = domain.EnvironmentalContext{
			NetworkQuality: domain.NetworkOffline,
			DeviceType:     domain.DeviceMobile,
			LowBattery:     true,
			NoiseLevel:     domain.NoiseNoisy,
			Lighting:       domain.LightingDim,
		}
		a := calc.CurrentLoad(history, sessionStartedAgo(5), nil, testNow)
		assert.Equal(t, 1.0, a.Factors.EnvironmentalStress)
	})

	t.Run("contextual demand", func(t *testing.T) {
		late := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
		state := domain.NewSessionState(uuid.New(), late.Add(-90*time.Minute))
		state.MomentumTrend = domain.MomentumDeclining
		a := calc.CurrentLoad(nil, state, nil, late)
		// off hours 0.2, 30 minutes overtime 0.15, declining momentum 0.15
		assert.InDelta(t, 0.5, a.Factors.ContextualDemand, 1e-9)
	})
}

func TestCurrentLoadScalesWithPersonalCapacity(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(nil, nil)
	state := sessionStartedAgo(45)

	full := calc.CurrentLoad(nil, state, nil, testNow)
	sensitive := calc.CurrentLoad(nil, state, &domain.UserProfile{BaseCognitiveCapacity: 0.5}, testNow)

	assert.InDelta(t, 0.25*(1-math.Exp(-1)), full.CurrentLoad, 1e-9)
	assert.InDelta(t, full.CurrentLoad*1.5, sensitive.CurrentLoad, 1e-9)
	assert.InDelta(t, 0.5, sensitive.Capacity, 1e-9)
}

func TestCapacityFloor(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(nil, nil)
	state := sessionStartedAgo(10)
	state.FatigueIndex = 1
	state.AttentionSpanRemaining = 0.1

	a := calc.CurrentLoad(nil, state, nil, time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC))
	assert.Equal(t, 0.1, a.Capacity)
}

func TestDifficultyAdjustment(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(nil, nil)

	tests := []struct {
		utilization float64
		expected    float64
	}{
		{0, 2},
		{0.15, 1},
		{0.5, 0},
		{0.7, 0},
		{0.95, -1.5},
		{2, -3},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.expected, calc.difficultyAdjustment(tc.utilization), 1e-9, "utilization %v", tc.utilization)
	}
}

func TestSustainability(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(nil, nil)
	state := sessionStartedAgo(0)
	state.MomentumTrend = domain.MomentumDeclining

	assert.InDelta(t, 0.6*0.9, calc.sustainability(1.0, state, 0), 1e-9)
	assert.InDelta(t, 0.6*0.9*0.5, calc.sustainability(1.0, state, 90), 1e-9)
	assert.InDelta(t, 0.6*0.9*0.3, calc.sustainability(1.0, state, 600), 1e-9)

	state.MomentumTrend = domain.MomentumImproving
	assert.Equal(t, 1.0, calc.sustainability(0.5, state, 0), "clamped to one")
}

func TestAlertLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name           string
		utilization    float64
		sustainability float64
		expected       AlertLevel
	}{
		{"calm", 0.5, 0.9, AlertGreen},
		{"busy", 0.75, 0.9, AlertYellow},
		{"tiring", 0.5, 0.5, AlertYellow},
		{"strained", 0.95, 0.9, AlertOrange},
		{"running out", 0.5, 0.3, AlertOrange},
		{"overloaded", 1.3, 0.9, AlertRed},
		{"exhausted", 0.5, 0.1, AlertRed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, alertLevel(tc.utilization, tc.sustainability))
		})
	}
}

func TestRecommendations(t *testing.T) {
	t.Parallel()
	state := sessionStartedAgo(0)
	state.FatigueIndex = 0.8
	state.AttentionSpanRemaining = 0.2

	got := recommendations(Analysis{UtilizationRate: 1.1, SustainabilityScore: 0.3}, state)
	assert.Equal(t, []string{RecommendReduceDifficulty, RecommendTakeBreak, RecommendWrapUp, RecommendShortBursts}, got)

	got = recommendations(Analysis{UtilizationRate: 0.5, SustainabilityScore: 0.9}, sessionStartedAgo(0))
	assert.Equal(t, []string{RecommendMaintain}, got)
}

func TestCurrentLoadIsIdempotent(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(nil, nil)
	history := responses([]domain.Rating{domain.RatingGood, domain.RatingAgain, domain.RatingHard, domain.RatingEasy}, 6000)
	history[2].ResponseTimeMS = 18000
	state := sessionStartedAgo(70)
	state.FatigueIndex = 0.4
	profile := &domain.UserProfile{BaseCognitiveCapacity: 0.8, TargetRetention: 0.9}

	first := calc.CurrentLoad(history, state, profile, testNow)
	second := calc.CurrentLoad(history, state, profile, testNow)

	require.Equal(t, first, second)
	assert.GreaterOrEqual(t, first.CurrentLoad, 0.0)
	assert.LessOrEqual(t, first.CurrentLoad, 1.0)
}
