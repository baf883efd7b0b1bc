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
	"github.com/phrazzld/scry-uams/internal/redact"
	"github.com/phrazzld/scry-uams/internal/store"
)

// PostgresUserProfileStore implements store.UserProfileStore.
type PostgresUserProfileStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserProfileStore creates a profile store on db. If logger is
// nil, a default logger will be used.
func NewPostgresUserProfileStore(db store.DBTX, logger *slog.Logger) *PostgresUserProfileStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserProfileStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_profile_store")),
	}
}

var _ store.UserProfileStore = (*PostgresUserProfileStore)(nil)

// Get implements store.UserProfileStore.Get.
func (s *PostgresUserProfileStore) Get(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	var (
		p      domain.UserProfile
		params []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, fsrs_parameters, base_cognitive_capacity, target_retention, created_at, updated_at
		FROM user_profiles WHERE user_id = $1
	`, userID).Scan(&p.UserID, &params, &p.BaseCognitiveCapacity, &p.TargetRetention, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserProfileNotFound
		}
		return nil, MapError(err)
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p.FSRSParameters); err != nil {
			return nil, fmt.Errorf("failed to decode FSRS parameters: %w", err)
		}
	}
	return &p, nil
}

// Upsert implements store.UserProfileStore.Upsert.
func (s *PostgresUserProfileStore) Upsert(ctx context.Context, profile *domain.UserProfile) error {
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	var params any
	if len(profile.FSRSParameters) > 0 {
		encoded, err := json.Marshal(profile.FSRSParameters)
		if err != nil {
			return fmt.Errorf("failed to encode FSRS parameters: %w", err)
		}
		params = encoded
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, fsrs_parameters, base_cognitive_capacity, target_retention, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			fsrs_parameters = EXCLUDED.fsrs_parameters,
			base_cognitive_capacity = EXCLUDED.base_cognitive_capacity,
			target_retention = EXCLUDED.target_retention,
			updated_at = EXCLUDED.updated_at
	`, profile.UserID, params, profile.BaseCognitiveCapacity, profile.TargetRetention, profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		s.logger.Error("failed to upsert profile",
			redact.Attr("error", err),
			slog.String("user_id", profile.UserID.String()))
		return MapError(err)
	}
	return nil
}
