package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/domain"
)

// CardStore defines the interface for card data persistence. Cards are
// stored with their full memory state and rolling performance history.
type CardStore interface {
	// Create saves a new card. The card must pass domain validation.
	Create(ctx context.Context, card *domain.Card) error

	// CreateMultiple saves several cards. Run it inside RunInTransaction
	// for atomicity.
	CreateMultiple(ctx context.Context, cards []*domain.Card) error

	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// ListByUser returns every card of a user ordered by creation time.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Card, error)

	// ListDue returns the user's cards whose next review is at or before now,
	// or that have never been scheduled, most overdue first.
	ListDue(ctx context.Context, userID uuid.UUID, now time.Time) ([]*domain.Card, error)

	// Update replaces the stored memory state of a card.
	// Returns ErrCardNotFound if the card does not exist.
	Update(ctx context.Context, card *domain.Card) error

	// WithTx returns a CardStore bound to tx.
	WithTx(tx *sql.Tx) CardStore
}
