package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/domain"
)

// ResponseLogStore is the append-only log of answers.
type ResponseLogStore interface {
	// Append records a response. Responses are never updated.
	Append(ctx context.Context, resp *domain.ResponseLog) error

	// ListBySession returns up to limit of the most recent responses of a
	// session, oldest first. A limit of zero or less returns all of them.
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.ResponseLog, error)

	// WithTx returns a ResponseLogStore bound to tx.
	WithTx(tx *sql.Tx) ResponseLogStore
}
