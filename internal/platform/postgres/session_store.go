package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/platform/logger"
	"github.com/phrazzld/scry-uams/internal/redact"
	"github.com/phrazzld/scry-uams/internal/store"
)

// PostgresSessionStore implements store.SessionStore. Session state is
// stored verbatim as a JSONB document.
type PostgresSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSessionStore creates a session store on db. If logger is nil,
// a default logger will be used.
func NewPostgresSessionStore(db store.DBTX, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

var _ store.SessionStore = (*PostgresSessionStore)(nil)

// Create implements store.SessionStore.Create.
func (s *PostgresSessionStore) Create(ctx context.Context, state *domain.SessionState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO study_sessions (id, user_id, state, started_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, state.ID, state.UserID, payload, state.StartedAt, state.UpdatedAt)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create session",
			redact.Attr("error", err),
			slog.String("session_id", state.ID.String()))
		return MapError(err)
	}
	return nil
}

// Get implements store.SessionStore.Get.
func (s *PostgresSessionStore) Get(ctx context.Context, id uuid.UUID) (*domain.SessionState, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT state FROM study_sessions WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSessionNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get session",
			redact.Attr("error", err),
			slog.String("session_id", id.String()))
		return nil, MapError(err)
	}

	var state domain.SessionState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("failed to decode session state: %w", err)
	}
	return &state, nil
}

// Update implements store.SessionStore.Update.
func (s *PostgresSessionStore) Update(ctx context.Context, state *domain.SessionState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE study_sessions SET state = $1, updated_at = $2 WHERE id = $3
	`, payload, state.UpdatedAt, state.ID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update session",
			redact.Attr("error", err),
			slog.String("session_id", state.ID.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrSessionNotFound)
}

// Delete implements store.SessionStore.Delete.
func (s *PostgresSessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM study_sessions WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrSessionNotFound)
}

// WithTx implements store.SessionStore.WithTx.
func (s *PostgresSessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return &PostgresSessionStore{db: tx, logger: s.logger}
}
