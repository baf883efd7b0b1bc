//go:build integration

package study_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/config"
	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/events"
	"github.com/phrazzld/scry-uams/internal/platform/postgres"
	"github.com/phrazzld/scry-uams/internal/service/study"
	"github.com/phrazzld/scry-uams/internal/store"
	"github.com/phrazzld/scry-uams/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The service commits through its own transactions, so this test writes
// under a fresh user and deletes that user's rows afterwards.
func TestStudyTurnAgainstPostgres(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, "DELETE FROM study_sessions WHERE user_id = $1", userID)
		_, _ = db.ExecContext(ctx, "DELETE FROM cards WHERE user_id = $1", userID)
		_, _ = db.ExecContext(ctx, "DELETE FROM user_profiles WHERE user_id = $1", userID)
	})

	cards := postgres.NewPostgresCardStore(db, nil)
	sessions := postgres.NewPostgresSessionStore(db, nil)
	responses := postgres.NewPostgresResponseLogStore(db, nil)
	profiles := postgres.NewPostgresUserProfileStore(db, nil)

	deckID := uuid.New()
	var seed []*domain.Card
	for i := 0; i < 4; i++ {
		c, err := domain.NewCard(userID, deckID, domain.CardTypeBasic,
			fmt.Sprintf("prompt %d about topic %d", i, i*7), fmt.Sprintf("answer %d", i), now.Add(-time.Hour))
		require.NoError(t, err)
		seed = append(seed, c)
	}
	require.NoError(t, cards.CreateMultiple(ctx, seed))

	emitter := events.NewInMemoryEventEmitter(nil)
	svc := study.NewService(study.Dependencies{
		Cards:     cards,
		Sessions:  sessions,
		Responses: responses,
		Profiles:  profiles,
		Tx:        store.NewSQLTransactor(db, store.Stores{Cards: cards, Sessions: sessions, Responses: responses}),
		Emitter:   emitter,
		Clock:     func() time.Time { return now },
	}, config.SchedulerConfig{}, nil)

	session, err := svc.StartSession(ctx, userID)
	require.NoError(t, err)

	next, err := svc.NextCard(ctx, session.ID, domain.EnvironmentalContext{})
	require.NoError(t, err)

	res, err := svc.SubmitResponse(ctx, session.ID, study.ResponseInput{
		CardID:         next.Card.ID,
		Rating:         "good",
		ResponseTimeMS: 3500,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.IntervalDays, 1)

	stored, err := cards.GetByID(ctx, next.Card.ID)
	require.NoError(t, err)
	assert.Equal(t, res.NextReviewAt.Unix(), stored.NextReviewAt.Unix())

	history, err := responses.ListBySession(ctx, session.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.RatingGood, history[0].Rating)

	state, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.ResponsesProcessed)

	require.NoError(t, svc.EndSession(ctx, session.ID))
	_, err = svc.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, study.ErrSessionNotFound)
}
