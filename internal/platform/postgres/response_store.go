package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/platform/logger"
	"github.com/phrazzld/scry-uams/internal/redact"
	"github.com/phrazzld/scry-uams/internal/store"
)

// PostgresResponseLogStore implements store.ResponseLogStore.
type PostgresResponseLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresResponseLogStore creates a response log store on db. If logger
// is nil, a default logger will be used.
func NewPostgresResponseLogStore(db store.DBTX, logger *slog.Logger) *PostgresResponseLogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresResponseLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "response_log_store")),
	}
}

var _ store.ResponseLogStore = (*PostgresResponseLogStore)(nil)

// Append implements store.ResponseLogStore.Append.
func (s *PostgresResponseLogStore) Append(ctx context.Context, resp *domain.ResponseLog) error {
	if err := resp.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	factors, err := json.Marshal(resp.Context)
	if err != nil {
		return fmt.Errorf("failed to encode contextual factors: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO response_logs (id, session_id, card_id, rating, response_time_ms, context, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, resp.ID, resp.SessionID, resp.CardID, string(resp.Rating), resp.ResponseTimeMS, factors, resp.Timestamp)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to append response",
			redact.Attr("error", err),
			slog.String("card_id", resp.CardID.String()))
		return MapError(err)
	}
	return nil
}

// ListBySession implements store.ResponseLogStore.ListBySession.
func (s *PostgresResponseLogStore) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.ResponseLog, error) {
	query := `
		SELECT id, session_id, card_id, rating, response_time_ms, context, answered_at
		FROM (
			SELECT * FROM response_logs
			WHERE session_id = $1
			ORDER BY answered_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY answered_at, id
	`
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := s.db.QueryContext(ctx, query, sessionID, limitArg)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list responses",
			redact.Attr("error", err),
			slog.String("session_id", sessionID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.ResponseLog{}
	for rows.Next() {
		var (
			r       domain.ResponseLog
			rating  string
			factors []byte
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.CardID, &rating, &r.ResponseTimeMS, &factors, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		r.Rating = domain.Rating(rating)
		if err := json.Unmarshal(factors, &r.Context); err != nil {
			return nil, fmt.Errorf("failed to decode contextual factors: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// WithTx implements store.ResponseLogStore.WithTx.
func (s *PostgresResponseLogStore) WithTx(tx *sql.Tx) store.ResponseLogStore {
	return &PostgresResponseLogStore{db: tx, logger: s.logger}
}
