package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/domain"
)

// UserProfileStore reads and writes learner profiles.
type UserProfileStore interface {
	// Get returns ErrUserProfileNotFound when the learner has no profile.
	Get(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error)

	// Upsert creates or replaces a profile.
	Upsert(ctx context.Context, profile *domain.UserProfile) error
}
