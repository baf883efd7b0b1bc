package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for UserProfile
var (
	ErrEmptyProfileUserID     = errors.New("user profile user ID cannot be empty")
	ErrInvalidCapacity        = errors.New("base cognitive capacity must be within (0, 1]")
	ErrInvalidTargetRetention = errors.New("target retention must be within (0, 1)")
)

// Profile defaults.
const (
	DefaultBaseCognitiveCapacity = 1.0
	DefaultTargetRetention       = 0.9
)

// UserProfile holds the per-learner settings the scheduler consumes. It is
// supplied by the profile collaborator; the scheduler never writes it.
type UserProfile struct {
	UserID                uuid.UUID `json:"user_id"`
	FSRSParameters        []float64 `json:"fsrs_parameters,omitempty"`
	BaseCognitiveCapacity float64   `json:"base_cognitive_capacity"`
	TargetRetention       float64   `json:"target_retention"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// DefaultUserProfile returns the profile used when a learner has none stored.
func DefaultUserProfile(userID uuid.UUID) *UserProfile {
	return &UserProfile{
		UserID:                userID,
		BaseCognitiveCapacity: DefaultBaseCognitiveCapacity,
		TargetRetention:       DefaultTargetRetention,
	}
}

// Validate checks the profile for well-formedness. FSRS parameters are
// optional but, when present, must hold exactly 21 values.
func (p *UserProfile) Validate() error {
	if p.UserID == uuid.Nil {
		return ErrEmptyProfileUserID
	}
	if p.BaseCognitiveCapacity <= 0 || p.BaseCognitiveCapacity > 1 {
		return ErrInvalidCapacity
	}
	if p.TargetRetention <= 0 || p.TargetRetention >= 1 {
		return ErrInvalidTargetRetention
	}
	if len(p.FSRSParameters) != 0 && len(p.FSRSParameters) != FSRSParameterCount {
		return ErrFSRSParameterCount
	}
	return nil
}

// Capacity returns the base cognitive capacity, falling back to the default
// for nil or zero-valued profiles.
func (p *UserProfile) Capacity() float64 {
	if p == nil || p.BaseCognitiveCapacity <= 0 {
		return DefaultBaseCognitiveCapacity
	}
	if p.BaseCognitiveCapacity > 1 {
		return 1
	}
	return p.BaseCognitiveCapacity
}

// Retention returns the target retention, falling back to the default.
func (p *UserProfile) Retention() float64 {
	if p == nil || p.TargetRetention <= 0 || p.TargetRetention >= 1 {
		return DefaultTargetRetention
	}
	return p.TargetRetention
}
