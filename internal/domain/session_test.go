package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCard(t *testing.T) *Card {
	t.Helper()
	c, err := NewCard(uuid.New(), uuid.New(), CardTypeBasic, "front", "back", testNow)
	require.NoError(t, err)
	return c
}

func TestNewSessionState(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	s := NewSessionState(userID, testNow)

	assert.Equal(t, userID, s.UserID)
	assert.Equal(t, InitialMomentum, s.MomentumScore)
	assert.Equal(t, InitialFatigue, s.FatigueIndex)
	assert.Equal(t, InitialCognitiveCapacity, s.CognitiveLoadCapacity)
	assert.Equal(t, InitialAttentionSpan, s.AttentionSpanRemaining)
	assert.Equal(t, MomentumStable, s.MomentumTrend)
	assert.Empty(t, s.AdaptationHistory)
	assert.True(t, s.BuffersEmpty())
	assert.Equal(t, 15.0, s.SessionMinutes(testNow.Add(15*time.Minute)))
}

func TestSessionWithSelectionMovesCardOut(t *testing.T) {
	t.Parallel()
	a, b, c := mustCard(t), mustCard(t), mustCard(t)
	s := NewSessionState(uuid.New(), testNow).WithBuffers(
		[]*Card{a}, []*Card{b}, []*Card{c}, nil, testNow,
	)

	next := s.WithSelection(AdaptationEntry{CardID: b.ID, Timestamp: testNow}, "picked b", testNow)

	assert.Len(t, s.LookaheadBuffer, 1, "original state must not change")
	assert.Empty(t, next.LookaheadBuffer)
	require.Len(t, next.AdaptationHistory, 1)
	require.Len(t, next.ExplanationLog, 1)
	assert.Equal(t, "picked b", next.ExplanationLog[0].Text)
	_, found := next.FindBufferedCard(b.ID)
	assert.False(t, found)
	_, found = next.FindBufferedCard(a.ID)
	assert.True(t, found)
}

func TestSessionValidateBuffers(t *testing.T) {
	t.Parallel()
	a, b := mustCard(t), mustCard(t)

	ok := NewSessionState(uuid.New(), testNow).WithBuffers([]*Card{a}, []*Card{b}, nil, nil, testNow)
	assert.NoError(t, ok.ValidateBuffers())

	bad := NewSessionState(uuid.New(), testNow).WithBuffers([]*Card{a}, nil, []*Card{a}, nil, testNow)
	assert.ErrorIs(t, bad.ValidateBuffers(), ErrBuffersOverlap)
}

func TestSessionRecentAdaptations(t *testing.T) {
	t.Parallel()
	s := NewSessionState(uuid.New(), testNow)
	for i := 0; i < 5; i++ {
		s = s.WithSelection(AdaptationEntry{CardID: uuid.New(), Reason: string(rune('a' + i))}, "", testNow)
	}
	recent := s.RecentAdaptations(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "c", recent[0].Reason)
	assert.Equal(t, "e", recent[2].Reason)
}

func TestParseRating(t *testing.T) {
	t.Parallel()
	r, err := ParseRating(" Good ")
	require.NoError(t, err)
	assert.Equal(t, RatingGood, r)
	assert.Equal(t, 3.0, r.Value())

	_, err = ParseRating("perfect")
	assert.ErrorIs(t, err, ErrInvalidRating)
}

func TestNewResponseLogValidation(t *testing.T) {
	t.Parallel()
	_, err := NewResponseLog(uuid.Nil, uuid.New(), RatingGood, 1000, ContextualFactors{}, testNow)
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = NewResponseLog(uuid.New(), uuid.New(), "meh", 1000, ContextualFactors{}, testNow)
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = NewResponseLog(uuid.New(), uuid.New(), RatingHard, -1, ContextualFactors{}, testNow)
	assert.ErrorIs(t, err, ErrInvalidResponseTime)

	r, err := NewResponseLog(uuid.New(), uuid.New(), RatingEasy, 2500, ContextualFactors{}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, r.ResponseTime())
	assert.Equal(t, 2.5, r.ResponseSeconds())
}

func TestSessionLastActivity(t *testing.T) {
	t.Parallel()
	s := NewSessionState(uuid.New(), testNow)
	assert.Equal(t, testNow, s.LastActivity())

	s.LastResponseAt = testNow.Add(3 * time.Minute)
	assert.Equal(t, testNow.Add(3*time.Minute), s.LastActivity())
}
