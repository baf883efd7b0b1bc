package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/domain/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func card(t *testing.T, difficulty, stability float64, due bool) *domain.Card {
	t.Helper()
	c, err := domain.NewCard(uuid.New(), uuid.New(), domain.CardTypeBasic,
		"prompt "+uuid.NewString(), "reply "+uuid.NewString(), testNow)
	require.NoError(t, err)
	c.Difficulty = difficulty
	c.Stability = stability
	c.Retrievability = 0.9
	c.ReviewCount = 5
	if due {
		c.NextReviewAt = testNow.Add(-24 * time.Hour)
	} else {
		c.NextReviewAt = testNow.Add(72 * time.Hour)
	}
	return c
}

func ids(cards []*domain.Card) []uuid.UUID {
	out := make([]uuid.UUID, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func assertDisjoint(t *testing.T, b Buffers) {
	t.Helper()
	seen := map[uuid.UUID]bool{}
	for _, buf := range [][]*domain.Card{b.ReviewQueue, b.LookaheadBuffer, b.EmergencyBuffer, b.ChallengeReserve} {
		for _, c := range buf {
			assert.False(t, seen[c.ID], "card %s appears in two buffers", c.ID)
			seen[c.ID] = true
		}
	}
}

func TestBuildFillsDisjointBuffers(t *testing.T) {
	t.Parallel()
	var cards []*domain.Card
	for i := 0; i < 30; i++ {
		cards = append(cards, card(t, 5, 3, true))
	}
	easy := make([]*domain.Card, 3)
	for i := range easy {
		easy[i] = card(t, 2, 20+float64(i), false)
	}
	hard := make([]*domain.Card, 3)
	for i := range hard {
		hard[i] = card(t, 8+float64(i)*0.5, 2, false)
	}
	cards = append(cards, easy...)
	cards = append(cards, hard...)
	cards = append(cards, cards[0]) // duplicate

	state := domain.NewSessionState(uuid.New(), testNow)
	res := NewManager(nil, nil, nil).Build(state, cards, domain.EnvironmentalContext{}, testNow)

	assert.False(t, res.Fallback)
	assert.Equal(t, ModeNormal, res.Mode)
	assert.Len(t, res.ReviewQueue, 15)
	assert.Len(t, res.LookaheadBuffer, 10)
	assert.Equal(t, []uuid.UUID{easy[2].ID, easy[1].ID, easy[0].ID}, ids(res.EmergencyBuffer),
		"emergency cards are ordered by stability")
	assert.Equal(t, []uuid.UUID{hard[2].ID, hard[1].ID, hard[0].ID}, ids(res.ChallengeReserve),
		"challenge cards are ordered by difficulty")
	assertDisjoint(t, res.Buffers)
	assert.NotEmpty(t, res.AdaptationLog)

	next := res.ApplyTo(state, testNow)
	assert.NoError(t, next.ValidateBuffers())
}

func TestBuildOnlyQueuesDueCards(t *testing.T) {
	t.Parallel()
	due := card(t, 5, 3, true)
	later := card(t, 5, 3, false)

	res := NewManager(nil, nil, nil).Build(
		domain.NewSessionState(uuid.New(), testNow),
		[]*domain.Card{later, due},
		domain.EnvironmentalContext{},
		testNow,
	)

	assert.Equal(t, []uuid.UUID{due.ID}, ids(res.ReviewQueue))
	assert.Empty(t, res.LookaheadBuffer)
}

func TestBuildExtendsLookaheadOffline(t *testing.T) {
	t.Parallel()
	var cards []*domain.Card
	for i := 0; i < 40; i++ {
		cards = append(cards, card(t, 5, 3, true))
	}

	res := NewManager(nil, nil, nil).Build(
		domain.NewSessionState(uuid.New(), testNow),
		cards,
		domain.EnvironmentalContext{NetworkQuality: domain.NetworkOffline},
		testNow,
	)

	assert.Len(t, res.ReviewQueue, 15)
	assert.Len(t, res.LookaheadBuffer, 20)
}

func TestBuildCrisisReservesEmergencyFirst(t *testing.T) {
	t.Parallel()
	rescue := card(t, 2, 30, true)
	light := card(t, 3, 3, true)
	cards := []*domain.Card{rescue, light}

	state := domain.NewSessionState(uuid.New(), testNow)
	state.FatigueIndex = 0.9

	res := NewManager(nil, nil, nil).Build(state, cards, domain.EnvironmentalContext{}, testNow)

	assert.Equal(t, ModeCrisis, res.Mode)
	assert.Equal(t, []uuid.UUID{rescue.ID}, ids(res.EmergencyBuffer))
	assert.Equal(t, []uuid.UUID{light.ID}, ids(res.ReviewQueue))
	assertDisjoint(t, res.Buffers)
}

func TestBuildFallsBackToFIFOWhenEverythingIsClustered(t *testing.T) {
	t.Parallel()
	anchor := uuid.New()
	var cards []*domain.Card
	for i := 0; i < 20; i++ {
		c := card(t, 5, 3, true)
		c.ConceptSimilarity = []uuid.UUID{anchor}
		cards = append(cards, c)
	}

	state := domain.NewSessionState(uuid.New(), testNow).WithSelection(
		domain.AdaptationEntry{CardID: anchor, Timestamp: testNow}, "anchor", testNow)

	res := NewManager(nil, nil, nil).Build(state, cards, domain.EnvironmentalContext{}, testNow)

	require.True(t, res.Fallback)
	assert.Equal(t, ids(cards[:10]), ids(res.ReviewQueue))
	assert.Equal(t, ids(cards[10:15]), ids(res.LookaheadBuffer))
	assert.Empty(t, res.EmergencyBuffer)
	assert.Empty(t, res.ChallengeReserve)
	require.Len(t, res.AdaptationLog, 1)
	assert.Equal(t, "fallback", res.AdaptationLog[0].Event)
}

func TestBuildHandlesNoCards(t *testing.T) {
	t.Parallel()
	res := NewManager(nil, nil, nil).Build(
		domain.NewSessionState(uuid.New(), testNow), nil, domain.EnvironmentalContext{}, testNow)

	assert.False(t, res.Fallback)
	assert.Empty(t, res.ReviewQueue)
	assert.Empty(t, res.EmergencyBuffer)
}

func TestBuildWithoutSessionState(t *testing.T) {
	t.Parallel()
	a := card(t, 5, 3, true)
	b := card(t, 5, 3, true)

	var res Result
	require.NotPanics(t, func() {
		res = NewManager(nil, nil, nil).Build(nil, []*domain.Card{a, b}, domain.EnvironmentalContext{}, testNow)
	})

	assert.Equal(t, ModeNormal, res.Mode)
	queued := append(append([]*domain.Card{}, res.ReviewQueue...), res.LookaheadBuffer...)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, ids(queued))
}

func TestBuildRankingSpreadsRelatedCards(t *testing.T) {
	t.Parallel()
	a := card(t, 5, 3, true)
	b := card(t, 5, 3, true)
	b.ConceptSimilarity = []uuid.UUID{a.ID}
	c := card(t, 5, 3, true)

	res := NewManager(selection.NewSelector(nil, nil), nil, nil).Build(
		domain.NewSessionState(uuid.New(), testNow),
		[]*domain.Card{a, b, c},
		domain.EnvironmentalContext{},
		testNow,
	)

	require.False(t, res.Fallback)
	assert.Equal(t, []uuid.UUID{a.ID, c.ID, b.ID}, ids(res.ReviewQueue),
		"b is linked to a and waits until the pool runs dry")
}

func TestModeFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		momentum float64
		fatigue  float64
		trend    domain.MomentumTrend
		expected Mode
	}{
		{"exhausted", 0.6, 0.85, domain.MomentumStable, ModeCrisis},
		{"collapsing", 0.2, 0.3, domain.MomentumDeclining, ModeCrisis},
		{"flying", 0.9, 0.2, domain.MomentumImproving, ModeHighPerformance},
		{"ordinary", 0.5, 0.3, domain.MomentumStable, ModeNormal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := domain.NewSessionState(uuid.New(), testNow)
			s.MomentumScore, s.FatigueIndex, s.MomentumTrend = tc.momentum, tc.fatigue, tc.trend
			assert.Equal(t, tc.expected, ModeFor(s))
		})
	}
}
