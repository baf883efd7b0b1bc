// Package study runs study sessions: it loads the state a turn needs from
// the stores, drives the scheduling core and persists the outcome.
package study

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/domain/cogload"
	"github.com/phrazzld/scry-uams/internal/domain/dsr"
	"github.com/phrazzld/scry-uams/internal/domain/momentum"
	"github.com/phrazzld/scry-uams/internal/domain/queue"
	"github.com/phrazzld/scry-uams/internal/domain/selection"
)

// Service orchestrates study turns. Mutating operations on the same session
// are serialized; different sessions proceed independently.
type Service interface {
	// StartSession creates a session for userID, fills its buffers from the
	// user's cards and persists it.
	StartSession(ctx context.Context, userID uuid.UUID) (*domain.SessionState, error)

	// NextCard selects the next card of the session. The buffers are rebuilt
	// when both the review queue and lookahead buffer have run dry.
	//
	// Returns ErrNoCardsAvailable when the user has nothing left to study.
	NextCard(ctx context.Context, sessionID uuid.UUID, env domain.EnvironmentalContext) (*NextCardResult, error)

	// SubmitResponse records the answer to a card served by NextCard and
	// advances the card's memory state and the session state.
	//
	// Returns ErrInvalidResponse for malformed input and ErrCardNotInSession
	// when the card has no pending selection in this session.
	SubmitResponse(ctx context.Context, sessionID uuid.UUID, input ResponseInput) (*ResponseResult, error)

	// CognitiveLoad analyses the session's current cognitive load.
	CognitiveLoad(ctx context.Context, sessionID uuid.UUID) (*cogload.Analysis, error)

	// Analyze reports momentum, flow, load and queue diagnostics.
	Analyze(ctx context.Context, sessionID uuid.UUID) (*Analysis, error)

	// GetSession returns the stored session state.
	GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.SessionState, error)

	// EndSession deletes the session state.
	EndSession(ctx context.Context, sessionID uuid.UUID) error
}

// ResponseInput is an answer submitted by the learner.
type ResponseInput struct {
	CardID         uuid.UUID
	Rating         string
	ResponseTimeMS int64
	Environment    domain.EnvironmentalContext
}

// NextCardResult is the outcome of NextCard.
type NextCardResult struct {
	Card      *domain.Card         `json:"card"`
	Selection *selection.Result    `json:"selection"`
	Session   *domain.SessionState `json:"-"`
	Rebuilt   bool                 `json:"rebuilt"`
}

// ResponseResult is the outcome of SubmitResponse.
type ResponseResult struct {
	Card         *domain.Card              `json:"card"`
	DSR          dsr.Result                `json:"dsr"`
	IntervalDays int                       `json:"interval_days"`
	NextReviewAt time.Time                 `json:"next_review_at"`
	Momentum     momentum.MomentumAnalysis `json:"momentum"`
	Load         cogload.Analysis          `json:"cognitive_load"`
	Adjustment   queue.Adjustment          `json:"queue_adjustment"`
	Session      *domain.SessionState      `json:"-"`
}

// Analysis bundles the read-only diagnostics of a session.
type Analysis struct {
	Momentum   momentum.MomentumAnalysis `json:"momentum"`
	Flow       momentum.FlowAnalysis     `json:"flow"`
	Load       cogload.Analysis          `json:"cognitive_load"`
	Mode       queue.Mode                `json:"queue_mode"`
	Efficiency queue.Efficiency          `json:"queue_efficiency"`
}

// Service errors. Callers check them with errors.Is; ServiceError wraps
// them with the failing operation.
var (
	// ErrSessionNotFound indicates the session does not exist.
	ErrSessionNotFound = errors.New("study session not found")

	// ErrSessionOwnership indicates a card belongs to another user than the session.
	ErrSessionOwnership = errors.New("card does not belong to the session's user")

	// ErrCardNotInSession indicates a response for a card that was not served.
	ErrCardNotInSession = errors.New("card has no pending selection in this session")

	// ErrNoCardsAvailable indicates there is nothing left to study.
	ErrNoCardsAvailable = errors.New("no cards available for study")

	// ErrInvalidResponse indicates a malformed response submission.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrInvalidUser indicates a missing user id.
	ErrInvalidUser = errors.New("invalid user id")

	// ErrSessionBusy indicates another turn of the same session did not
	// finish in time.
	ErrSessionBusy = errors.New("session is busy with another turn")
)

// Operation names carried by ServiceError.
const (
	OpStartSession   = "start_session"
	OpNextCard       = "next_card"
	OpSubmitResponse = "submit_response"
	OpCognitiveLoad  = "cognitive_load"
	OpAnalyze        = "analyze"
	OpGetSession     = "get_session"
	OpEndSession     = "end_session"
)

// ServiceError wraps errors from the study service with additional context.
// This allows consumers to differentiate between different types of service errors
// using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "next_card", "submit_response")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns a ServiceError for operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
