package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/platform/logger"
	"github.com/phrazzld/scry-uams/internal/redact"
	"github.com/phrazzld/scry-uams/internal/store"
)

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
//
// The full card, memory state included, lives in the state JSONB column;
// next_review_at is duplicated into its own column for due-card queries.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the CardStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

const cardInsertQuery = `
	INSERT INTO cards (id, user_id, deck_id, card_type, state, next_review_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// Create implements store.CardStore.Create.
func (s *PostgresCardStore) Create(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("card validation failed during create",
			redact.Attr("error", err),
			slog.String("card_id", card.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	state, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to encode card: %w", err)
	}

	_, err = s.db.ExecContext(ctx, cardInsertQuery,
		card.ID, card.UserID, card.DeckID, string(card.Type), state,
		nullTime(card.NextReviewAt), card.CreatedAt, card.UpdatedAt)
	if err != nil {
		log.Error("failed to create card",
			redact.Attr("error", err),
			slog.String("card_id", card.ID.String()))
		return MapError(err)
	}

	log.Debug("card created", slog.String("card_id", card.ID.String()))
	return nil
}

// CreateMultiple implements store.CardStore.CreateMultiple.
func (s *PostgresCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	for _, card := range cards {
		if err := s.Create(ctx, card); err != nil {
			return err
		}
	}
	return nil
}

// GetByID implements store.CardStore.GetByID.
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var state []byte
	err := s.db.QueryRowContext(ctx, `SELECT state FROM cards WHERE id = $1`, id).Scan(&state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("card not found", slog.String("card_id", id.String()))
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to get card by ID",
			redact.Attr("error", err),
			slog.String("card_id", id.String()))
		return nil, MapError(err)
	}
	return decodeCard(state)
}

// ListByUser implements store.CardStore.ListByUser.
func (s *PostgresCardStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Card, error) {
	return s.list(ctx, `
		SELECT state FROM cards
		WHERE user_id = $1
		ORDER BY created_at, id
	`, userID)
}

// ListDue implements store.CardStore.ListDue.
func (s *PostgresCardStore) ListDue(ctx context.Context, userID uuid.UUID, now time.Time) ([]*domain.Card, error) {
	return s.list(ctx, `
		SELECT state FROM cards
		WHERE user_id = $1 AND (next_review_at IS NULL OR next_review_at <= $2)
		ORDER BY next_review_at NULLS FIRST, id
	`, userID, now.UTC())
}

func (s *PostgresCardStore) list(ctx context.Context, query string, args ...any) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list cards", redact.Attr("error", err))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	cards := []*domain.Card{}
	for rows.Next() {
		var state []byte
		if err := rows.Scan(&state); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		card, err := decodeCard(state)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return cards, nil
}

// Update implements store.CardStore.Update.
func (s *PostgresCardStore) Update(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	state, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to encode card: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE cards
		SET state = $1, next_review_at = $2, updated_at = $3
		WHERE id = $4
	`, state, nullTime(card.NextReviewAt), card.UpdatedAt, card.ID)
	if err != nil {
		log.Error("failed to update card",
			redact.Attr("error", err),
			slog.String("card_id", card.ID.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrCardNotFound)
}

// WithTx implements store.CardStore.WithTx.
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{db: tx, logger: s.logger}
}

func decodeCard(state []byte) (*domain.Card, error) {
	var card domain.Card
	if err := json.Unmarshal(state, &card); err != nil {
		return nil, fmt.Errorf("failed to decode card state: %w", err)
	}
	return &card, nil
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}
