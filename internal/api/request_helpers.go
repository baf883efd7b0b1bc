package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/api/shared"
	"github.com/phrazzld/scry-uams/internal/domain"
)

// getPathUUID extracts and parses a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", domain.ErrValidation, paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", domain.ErrInvalidID, paramName)
	}
	return id, nil
}

// sessionIDFromPath extracts the {id} session parameter, writing a 400
// response when it is missing or malformed.
func sessionIDFromPath(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		log.Warn("invalid session id", slog.String("value", chi.URLParam(r, "id")))
		HandleAPIError(w, r, err, "")
		return uuid.Nil, false
	}
	return id, true
}

// decodeAndValidate decodes the JSON body into v and validates it, writing a
// 400 response on failure. With optional set an empty body leaves v
// untouched and passes.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) bool {
	err := shared.DecodeJSON(r, v)
	if err != nil && !(optional && errors.Is(err, shared.ErrEmptyBody)) {
		HandleAPIError(w, r, err, "")
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		HandleAPIError(w, r, err, "")
		return false
	}
	return true
}
