package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/domain"
)

// SessionStore persists study session state verbatim between turns.
type SessionStore interface {
	// Create saves a new session.
	Create(ctx context.Context, state *domain.SessionState) error

	// Get retrieves a session. Returns ErrSessionNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.SessionState, error)

	// Update replaces the stored state. Returns ErrSessionNotFound if the
	// session does not exist.
	Update(ctx context.Context, state *domain.SessionState) error

	// Delete removes a session. Returns ErrSessionNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a SessionStore bound to tx.
	WithTx(tx *sql.Tx) SessionStore
}
