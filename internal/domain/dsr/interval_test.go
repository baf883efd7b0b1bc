package dsr

import (
	"testing"
	"time"

	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimalInterval(t *testing.T) {
	t.Parallel()
	engine := NewDefaultEngine()

	tests := []struct {
		name      string
		mutate    func(c *domain.Card)
		retention float64
		expected  int
	}{
		{"neutral modifiers", func(c *domain.Card) {}, 0.9, 23},
		{"invalid retention falls back", func(c *domain.Card) {}, 1.5, 23},
		{"increasing trend", func(c *domain.Card) { c.StabilityTrend = domain.StabilityIncreasing }, 0.9, 25},
		{"decreasing trend", func(c *domain.Card) { c.StabilityTrend = domain.StabilityDecreasing }, 0.9, 21},
		{"maximum load", func(c *domain.Card) { c.CognitiveLoadIndex = 1 }, 0.9, 16},
		{"hard at this hour", func(c *domain.Card) {
			c.ContextualDifficulty.ByHour = map[int]float64{testNow.Hour(): 2.0}
		}, 0.9, 18},
		{"easy on this weekday", func(c *domain.Card) {
			c.ContextualDifficulty.ByWeekday = map[time.Weekday]float64{testNow.Weekday(): 0.9}
		}, 0.9, 26},
		{"tiny stability floors at one day", func(c *domain.Card) { c.Stability = 0.1 }, 0.9, 1},
		{"lower retention stretches the interval", func(c *domain.Card) {}, 0.8, 16},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			card := newTestCard(t)
			card.Stability = 10
			tc.mutate(card)
			assert.Equal(t, tc.expected, engine.OptimalInterval(card, tc.retention, testNow))
		})
	}
}

func TestApply(t *testing.T) {
	t.Parallel()
	engine := NewDefaultEngine()
	card := withHistory(reviewedCard(t, 10, 5, 10), domain.RatingGood, domain.RatingGood)
	card.AverageResponseTimeMS = 4000
	card.ReviewCount = 2
	resp := response(domain.RatingGood, 6000, testNow)

	res := engine.Calculate(card, resp, nil)
	next := engine.Apply(card, resp, res, 0.9)

	require.NotSame(t, card, next)
	assert.Equal(t, res.Difficulty, next.Difficulty)
	assert.Equal(t, res.Stability, next.Stability)
	assert.Equal(t, res.Retrievability, next.Retrievability)
	assert.Equal(t, 3, next.ReviewCount)
	assert.Len(t, next.PerformanceHistory, 3)
	assert.Len(t, card.PerformanceHistory, 2)
	assert.InDelta(t, (4000.0*2+6000)/3, next.AverageResponseTimeMS, 1e-9)
	assert.Equal(t, domain.StabilityIncreasing, next.StabilityTrend)
	assert.Equal(t, domain.ConfidenceOptimal, next.ConfidenceLevel)
	assert.Equal(t, testNow, next.LastReviewedAt)

	days := engine.OptimalInterval(next, 0.9, testNow)
	assert.Equal(t, testNow.AddDate(0, 0, days), next.NextReviewAt)
}

func TestStabilityTrend(t *testing.T) {
	t.Parallel()
	assert.Equal(t, domain.StabilityIncreasing, stabilityTrend(10, 10.6))
	assert.Equal(t, domain.StabilityDecreasing, stabilityTrend(10, 9.4))
	assert.Equal(t, domain.StabilityStable, stabilityTrend(10, 10.4))
	assert.Equal(t, domain.StabilityStable, stabilityTrend(0, 5))
}
