package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/api/shared"
	"github.com/phrazzld/scry-uams/internal/platform/logger"
	"github.com/phrazzld/scry-uams/internal/service/study"
)

// StudyHandler handles study session HTTP requests.
type StudyHandler struct {
	service study.Service
	logger  *slog.Logger
}

// NewStudyHandler creates a new StudyHandler.
func NewStudyHandler(service study.Service, logger *slog.Logger) *StudyHandler {
	if service == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("study service cannot be nil for StudyHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StudyHandler{
		service: service,
		logger:  logger.With(slog.String("component", "study_handler")),
	}
}

// StartSession handles POST /sessions.
func (h *StudyHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req StartSessionRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		HandleAPIError(w, r, study.ErrInvalidUser, "")
		return
	}

	session, err := h.service.StartSession(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start session")
		return
	}

	log.Debug("study session started",
		slog.String("session_id", session.ID.String()),
		slog.String("user_id", userID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(session))
}

// GetSession handles GET /sessions/{id}.
func (h *StudyHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	sessionID, ok := sessionIDFromPath(w, r, log)
	if !ok {
		return
	}

	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(session))
}

// EndSession handles DELETE /sessions/{id}.
func (h *StudyHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	sessionID, ok := sessionIDFromPath(w, r, log)
	if !ok {
		return
	}

	if err := h.service.EndSession(r.Context(), sessionID); err != nil {
		HandleAPIError(w, r, err, "Failed to end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NextCard handles POST /sessions/{id}/next. The body is optional and only
// carries the learner's environment.
func (h *StudyHandler) NextCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	sessionID, ok := sessionIDFromPath(w, r, log)
	if !ok {
		return
	}

	var req NextCardRequest
	if !decodeAndValidate(w, r, &req, true) {
		return
	}

	res, err := h.service.NextCard(r.Context(), sessionID, req.Environment.toDomain())
	if errors.Is(err, study.ErrNoCardsAvailable) {
		log.Debug("no cards available", slog.String("session_id", sessionID.String()))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to select next card")
		return
	}

	log.Debug("card selected",
		slog.String("session_id", sessionID.String()),
		slog.String("card_id", res.Card.ID.String()),
		slog.String("strategy", string(res.Selection.Strategy)))
	shared.RespondWithJSON(w, r, http.StatusOK, selectionToResponse(sessionID, res))
}

// SubmitResponse handles POST /sessions/{id}/responses.
func (h *StudyHandler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	sessionID, ok := sessionIDFromPath(w, r, log)
	if !ok {
		return
	}

	var req SubmitResponseRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}
	cardID, err := uuid.Parse(req.CardID)
	if err != nil {
		HandleAPIError(w, r, study.ErrInvalidResponse, "")
		return
	}

	res, err := h.service.SubmitResponse(r.Context(), sessionID, study.ResponseInput{
		CardID:         cardID,
		Rating:         req.Rating,
		ResponseTimeMS: req.ResponseTimeMS,
		Environment:    req.Environment.toDomain(),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record response")
		return
	}

	log.Debug("response recorded",
		slog.String("session_id", sessionID.String()),
		slog.String("card_id", cardID.String()),
		slog.Int("interval_days", res.IntervalDays))
	shared.RespondWithJSON(w, r, http.StatusOK, res)
}

// CognitiveLoad handles GET /sessions/{id}/load.
func (h *StudyHandler) CognitiveLoad(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	sessionID, ok := sessionIDFromPath(w, r, log)
	if !ok {
		return
	}

	analysis, err := h.service.CognitiveLoad(r.Context(), sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to analyse cognitive load")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, analysis)
}

// Analyze handles GET /sessions/{id}/analysis.
func (h *StudyHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	sessionID, ok := sessionIDFromPath(w, r, log)
	if !ok {
		return
	}

	analysis, err := h.service.Analyze(r.Context(), sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to analyse session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, analysis)
}
