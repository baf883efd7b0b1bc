package momentum

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func answer(rating domain.Rating, ms int64, load float64, at time.Time) domain.ResponseLog {
	return domain.ResponseLog{
		ID:             uuid.New(),
		CardID:         uuid.New(),
		Rating:         rating,
		ResponseTimeMS: ms,
		Timestamp:      at,
		Context:        domain.ContextualFactors{CognitiveLoad: load},
	}
}

func TestUpdateMomentum(t *testing.T) {
	t.Parallel()
	mgr := NewManager(nil, nil)
	state := domain.NewSessionState(uuid.New(), testNow)

	next := mgr.Update(state, answer(domain.RatingGood, 5000, 0.5, testNow))

	// 0.5*0.65 + 0.75*0.35 + 0.02 optimal response time
	assert.InDelta(t, 0.6075, next.MomentumScore, 1e-9)
	assert.Equal(t, domain.MomentumImproving, next.MomentumTrend)
	assert.Equal(t, 1, next.ResponsesProcessed)
	assert.Equal(t, testNow, next.LastResponseAt)
}

func TestUpdateMomentumModifiers(t *testing.T) {
	t.Parallel()
	mgr := NewManager(nil, nil)

	tests := []struct {
		name     string
		prepare  func(s *domain.SessionState, r *domain.ResponseLog)
		expected float64
	}{
		{"baseline", func(s *domain.SessionState, r *domain.ResponseLog) {}, 0.5875},
		{"morning peak", func(s *domain.SessionState, r *domain.ResponseLog) {
			r.Timestamp = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
		}, 0.6375},
		{"late night", func(s *domain.SessionState, r *domain.ResponseLog) {
			r.Timestamp = time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
		}, 0.4875},
		{"high fatigue", func(s *domain.SessionState, r *domain.ResponseLog) { s.FatigueIndex = 0.85 }, 0.3875},
		{"guess", func(s *domain.SessionState, r *domain.ResponseLog) { r.ResponseTimeMS = 500 }, 0.5375},
		{"struggle", func(s *domain.SessionState, r *domain.ResponseLog) { r.ResponseTimeMS = 25000 }, 0.4875},
		{"overloaded", func(s *domain.SessionState, r *domain.ResponseLog) { r.Context.CognitiveLoad = 0.9 }, 0.5375},
		{"poor conditions", func(s *domain.SessionState, r *domain.ResponseLog) {
			r.Context.Environment = domain.EnvironmentalContext{
				NetworkQuality: domain.NetworkPoor,
				DeviceType:     domain.DeviceMobile,
				LowBattery:     true,
				NoiseLevel:     domain.NoiseNoisy,
			}
		}, 0.4875},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// 10:00, 9s answer and moderate load leave only the base terms
			state := domain.NewSessionState(uuid.New(), testNow.Add(-24*time.Hour))
			resp := answer(domain.RatingGood, 9000, 0.5, testNow)
			tc.prepare(state, &resp)
			state.StartedAt = resp.Timestamp
			next := mgr.Update(state, resp)
			assert.InDelta(t, tc.expected, next.MomentumScore, 1e-9)
		})
	}
}

func TestUpdateFatigue(t *testing.T) {
	t.Parallel()
	mgr := NewManager(nil, nil)

	t.Run("slow lapse on a tired session", func(t *testing.T) {
		state := domain.NewSessionState(uuid.New(), testNow)
		state.FatigueIndex = 0.5
		next := mgr.Update(state, answer(domain.RatingAgain, 25000, 0, testNow))

		assert.Greater(t, next.FatigueIndex, 0.5)
		// 0.1 slow response, 0.08 lapse, 0.02 load
		assert.InDelta(t, 0.7, next.FatigueIndex, 1e-9)
	})

	t.Run("easy answer recovers slightly", func(t *testing.T) {
		state := domain.NewSessionState(uuid.New(), testNow)
		state.FatigueIndex = 0.3
		next := mgr.Update(state, answer(domain.RatingEasy, 5000, 1, testNow))
		assert.InDelta(t, 0.29, next.FatigueIndex, 1e-9)
	})

	t.Run("elapsed time counts once", func(t *testing.T) {
		state := domain.NewSessionState(uuid.New(), testNow)
		first := mgr.Update(state, answer(domain.RatingGood, 5000, 1, testNow.Add(30*time.Minute)))
		assert.InDelta(t, 0.5, first.FatigueIndex, 1e-9)

		second := mgr.Update(first, answer(domain.RatingGood, 5000, 1, testNow.Add(45*time.Minute)))
		assert.InDelta(t, 0.75, second.FatigueIndex, 1e-9)
	})

	t.Run("saturates at one", func(t *testing.T) {
		state := domain.NewSessionState(uuid.New(), testNow)
		state.FatigueIndex = 0.98
		next := mgr.Update(state, answer(domain.RatingAgain, 25000, 0, testNow))
		assert.Equal(t, 1.0, next.FatigueIndex)
	})
}

func TestUpdateCapacityAndAttention(t *testing.T) {
	t.Parallel()
	mgr := NewManager(nil, nil)
	state := domain.NewSessionState(uuid.New(), testNow)

	next := mgr.Update(state, answer(domain.RatingGood, 5000, 1, testNow.Add(45*time.Minute)))
	f := next.FatigueIndex
	require.InDelta(t, 0.75, f, 1e-9)

	base := 1 - 45.0/120 - f*0.3
	assert.InDelta(t, 0.9+0.1*base, next.CognitiveLoadCapacity, 1e-9)
	assert.InDelta(t, 0.5*(1-f*0.5), next.AttentionSpanRemaining, 1e-9)
}

func TestUpdateAnnotatesOutcome(t *testing.T) {
	t.Parallel()
	mgr := NewManager(nil, nil)
	cardID := uuid.New()
	state := domain.NewSessionState(uuid.New(), testNow).WithSelection(
		domain.AdaptationEntry{CardID: cardID, Kind: domain.AdaptationBalance, Timestamp: testNow}, "", testNow)

	resp := answer(domain.RatingHard, 5000, 0.5, testNow.Add(time.Minute))
	resp.CardID = cardID
	next := mgr.Update(state, resp)

	require.Len(t, next.AdaptationHistory, 1)
	assert.Equal(t, domain.OutcomeFair, next.AdaptationHistory[0].Outcome)
	assert.Empty(t, state.AdaptationHistory[0].Outcome, "input state must not change")
}

func TestUpdateDoesNotMutateInput(t *testing.T) {
	t.Parallel()
	mgr := NewManager(nil, nil)
	state := domain.NewSessionState(uuid.New(), testNow)
	snapshot := state.Clone()

	next := mgr.Update(state, answer(domain.RatingAgain, 12000, 0.4, testNow.Add(10*time.Minute)))

	if diff := cmp.Diff(snapshot, state); diff != "" {
		t.Errorf("Update mutated its input (-before +after):\n%s", diff)
	}
	assert.NotSame(t, state, next)
}

func randomState(rng *rand.Rand) *domain.SessionState {
	trends := []domain.MomentumTrend{domain.MomentumImproving, domain.MomentumDeclining, domain.MomentumStable}
	s := domain.NewSessionState(uuid.New(), testNow.Add(-time.Duration(rng.Intn(180))*time.Minute))
	s.MomentumScore = rng.Float64()
	s.FatigueIndex = rng.Float64()
	s.CognitiveLoadCapacity = 0.1 + rng.Float64()*0.9
	s.AttentionSpanRemaining = rng.Float64()
	s.MomentumTrend = trends[rng.Intn(3)]
	return s
}

func randomResponse(rng *rand.Rand, rating domain.Rating) domain.ResponseLog {
	networks := []domain.NetworkQuality{"", domain.NetworkGood, domain.NetworkPoor, domain.NetworkOffline}
	r := answer(rating, rng.Int63n(40000), rng.Float64(), testNow.Add(time.Duration(rng.Intn(24))*time.Hour))
	r.Context.SessionFatigue = rng.Float64()
	r.Context.Environment.NetworkQuality = networks[rng.Intn(len(networks))]
	r.Context.Environment.LowBattery = rng.Intn(2) == 0
	return r
}

func TestUpdateRangeInvariants(t *testing.T) {
	t.Parallel()
	mgr := NewManager(nil, nil)
	rng := rand.New(rand.NewSource(7))
	ratings := []domain.Rating{domain.RatingAgain, domain.RatingHard, domain.RatingGood, domain.RatingEasy}

	for i := 0; i < 2000; i++ {
		state := randomState(rng)
		rating := ratings[rng.Intn(4)]
		next := mgr.Update(state, randomResponse(rng, rating))

		require.GreaterOrEqual(t, next.MomentumScore, 0.0)
		require.LessOrEqual(t, next.MomentumScore, 1.0)
		require.GreaterOrEqual(t, next.FatigueIndex, 0.0)
		require.LessOrEqual(t, next.FatigueIndex, 1.0)
		require.GreaterOrEqual(t, next.CognitiveLoadCapacity, 0.1)
		require.LessOrEqual(t, next.CognitiveLoadCapacity, 1.0)
		require.GreaterOrEqual(t, next.AttentionSpanRemaining, 0.0)
		require.LessOrEqual(t, next.AttentionSpanRemaining, 1.0)
		require.GreaterOrEqual(t, next.FlowState.EngagementLevel, 0.0)
		require.LessOrEqual(t, next.FlowState.EngagementLevel, 1.0)

		if rating != domain.RatingEasy {
			require.GreaterOrEqual(t, next.FatigueIndex, state.FatigueIndex, "fatigue only recovers on easy answers")
		}
	}
}

func TestAgainLowersMomentumRelativeToGood(t *testing.T) {
	t.Parallel()
	mgr := NewManager(nil, nil)
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 2000; i++ {
		state := randomState(rng)
		resp := randomResponse(rng, domain.RatingGood)
		good := mgr.Update(state, resp)

		resp.Rating = domain.RatingAgain
		again := mgr.Update(state, resp)

		if good.MomentumScore > 0 {
			require.Less(t, again.MomentumScore, good.MomentumScore)
		} else {
			require.Zero(t, again.MomentumScore)
		}
	}
}

func TestPerformanceSamples(t *testing.T) {
	t.Parallel()
	m := NewManager(nil, nil)
	history := []domain.ResponseLog{
		{Rating: domain.RatingAgain},
		{Rating: domain.RatingHard},
		{Rating: domain.RatingGood},
		{Rating: domain.RatingEasy},
	}

	samples := m.PerformanceSamples(history, 2)
	require.Len(t, samples, 2)
	assert.Equal(t, m.PerformanceValue(domain.RatingGood), samples[0])
	assert.Equal(t, 1.0, samples[1])
	assert.Equal(t, 0.5, m.PerformanceValue("unknown"))
}
