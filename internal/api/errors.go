package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-uams/internal/api/shared"
	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/service/study"
	"github.com/phrazzld/scry-uams/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	// Special cases
	case errors.Is(err, study.ErrNoCardsAvailable):
		return http.StatusNoContent

	// Authorization errors
	case errors.Is(err, study.ErrSessionOwnership):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, study.ErrSessionNotFound),
		store.IsNotFoundError(err):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, study.ErrCardNotInSession),
		errors.Is(err, study.ErrSessionBusy):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, study.ErrInvalidResponse),
		errors.Is(err, study.ErrInvalidUser),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrInvalidResponseTime),
		errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, shared.ErrMalformedBody),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors

	switch {
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(validationErrs)

	case errors.Is(err, study.ErrNoCardsAvailable):
		return "No cards available for study"

	case errors.Is(err, study.ErrSessionOwnership):
		return "Card does not belong to this session's user"

	case errors.Is(err, study.ErrSessionNotFound),
		errors.Is(err, store.ErrSessionNotFound):
		return "Session not found"

	case errors.Is(err, store.ErrCardNotFound):
		return "Card not found"

	case store.IsNotFoundError(err):
		return "Resource not found"

	case errors.Is(err, study.ErrCardNotInSession):
		return "Card was not served in this session"

	case errors.Is(err, study.ErrSessionBusy):
		return "Session is busy, retry shortly"

	case errors.Is(err, domain.ErrInvalidRating):
		return "Invalid rating: must be one of again, hard, good, easy"

	case errors.Is(err, domain.ErrInvalidResponseTime):
		return "Invalid response time"

	case errors.Is(err, study.ErrInvalidUser):
		return "Invalid user id"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid id"

	case errors.Is(err, study.ErrInvalidResponse):
		return "Invalid response"

	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"

	case errors.Is(err, shared.ErrMalformedBody):
		return "Invalid request format"

	case errors.Is(err, domain.ErrValidation):
		return "Validation error"

	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator errors into a short message naming
// the first offending field.
func SanitizeValidationError(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "Validation error"
	}
	fe := errs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "uuid", "uuid4":
		return "must be a UUID"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the error response for err. fallback replaces the
// generic message of unmapped server errors so the client sees which
// operation failed.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	if errors.Is(err, study.ErrSessionBusy) {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
