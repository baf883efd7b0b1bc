package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/config"
	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/domain/cogload"
	"github.com/phrazzld/scry-uams/internal/domain/dsr"
	"github.com/phrazzld/scry-uams/internal/domain/momentum"
	"github.com/phrazzld/scry-uams/internal/domain/queue"
	"github.com/phrazzld/scry-uams/internal/domain/selection"
	"github.com/phrazzld/scry-uams/internal/events"
	"github.com/phrazzld/scry-uams/internal/platform/logger"
	"github.com/phrazzld/scry-uams/internal/redact"
	"github.com/phrazzld/scry-uams/internal/store"
)

// turnWait bounds how long a turn waits for another turn of the same
// session before giving up with ErrSessionBusy.
const turnWait = 10 * time.Second

// Dependencies are the collaborators of the study service.
type Dependencies struct {
	Cards     store.CardStore
	Sessions  store.SessionStore
	Responses store.ResponseLogStore
	Profiles  store.UserProfileStore
	Tx        store.Transactor

	// Emitter receives study events. Nil discards them.
	Emitter events.EventEmitter

	// Clock supplies the study time. Nil selects time.Now.
	Clock func() time.Time
}

// Verify interface compliance at compile time
var _ Service = (*studyServiceImpl)(nil)

type studyServiceImpl struct {
	cards     store.CardStore
	sessions  store.SessionStore
	responses store.ResponseLogStore
	profiles  store.UserProfileStore
	tx        store.Transactor
	emitter   events.EventEmitter
	clock     func() time.Time

	cfg      config.SchedulerConfig
	engine   *dsr.Engine
	load     *cogload.Calculator
	momentum *momentum.Manager
	selector *selection.Selector
	queue    *queue.Manager
	locks    *sessionLocks
	logger   *slog.Logger
}

// NewService creates a study service. It panics when a store or the
// transactor is missing.
func NewService(deps Dependencies, cfg config.SchedulerConfig, logger *slog.Logger) Service {
	if deps.Cards == nil {
		panic("cards store cannot be nil")
	}
	if deps.Sessions == nil {
		panic("sessions store cannot be nil")
	}
	if deps.Responses == nil {
		panic("responses store cannot be nil")
	}
	if deps.Profiles == nil {
		panic("profiles store cannot be nil")
	}
	if deps.Tx == nil {
		panic("transactor cannot be nil")
	}
	if deps.Emitter == nil {
		deps.Emitter = events.NopEmitter{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = withDefaults(cfg)

	selector := selection.NewSelector(nil, logger)
	queueParams := queue.NewDefaultParams()
	queueParams.ReviewQueueSize = cfg.ReviewQueueSize
	queueParams.LookaheadSize = cfg.LookaheadSize
	queueParams.EmergencySize = cfg.EmergencySize
	queueParams.ChallengeSize = cfg.ChallengeSize

	return &studyServiceImpl{
		cards:     deps.Cards,
		sessions:  deps.Sessions,
		responses: deps.Responses,
		profiles:  deps.Profiles,
		tx:        deps.Tx,
		emitter:   deps.Emitter,
		clock:     deps.Clock,
		cfg:       cfg,
		engine:    dsr.NewDefaultEngine(),
		load:      cogload.NewCalculator(nil, logger),
		momentum:  momentum.NewManager(nil, logger),
		selector:  selector,
		queue:     queue.NewManager(selector, queueParams, logger),
		locks:     newSessionLocks(),
		logger:    logger.With(slog.String("component", "study_service")),
	}
}

// withDefaults fills unset scheduler settings with the documented defaults.
func withDefaults(cfg config.SchedulerConfig) config.SchedulerConfig {
	q := queue.NewDefaultParams()
	if cfg.AlgorithmVersion == "" {
		cfg.AlgorithmVersion = "uams-1.0"
	}
	if cfg.TargetRetention <= 0 || cfg.TargetRetention >= 1 {
		cfg.TargetRetention = domain.DefaultTargetRetention
	}
	if cfg.ReviewQueueSize <= 0 {
		cfg.ReviewQueueSize = q.ReviewQueueSize
	}
	if cfg.LookaheadSize <= 0 {
		cfg.LookaheadSize = q.LookaheadSize
	}
	if cfg.EmergencySize <= 0 {
		cfg.EmergencySize = q.EmergencySize
	}
	if cfg.ChallengeSize <= 0 {
		cfg.ChallengeSize = q.ChallengeSize
	}
	if cfg.HistoryWindow < 3 {
		cfg.HistoryWindow = 10
	}
	if cfg.PerformanceWindow <= 0 {
		cfg.PerformanceWindow = 5
	}
	if cfg.FrontOfLineWindow <= 0 {
		cfg.FrontOfLineWindow = 5
	}
	return cfg
}

// StartSession implements Service.StartSession.
func (s *studyServiceImpl) StartSession(ctx context.Context, userID uuid.UUID) (*domain.SessionState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if userID == uuid.Nil {
		return nil, NewServiceError(OpStartSession, "user id is required", ErrInvalidUser)
	}
	now := s.clock().UTC()

	cards, err := s.cards.ListByUser(ctx, userID)
	if err != nil {
		log.Error("failed to list cards for new session",
			redact.Attr("error", err),
			slog.String("user_id", userID.String()))
		return nil, NewServiceError(OpStartSession, "failed to load cards", err)
	}

	state := domain.NewSessionState(userID, now)
	built := s.queue.Build(state, cards, domain.EnvironmentalContext{}, now)
	state = built.ApplyTo(state, now)

	if err := s.sessions.Create(ctx, state); err != nil {
		log.Error("failed to create session",
			redact.Attr("error", err),
			slog.String("user_id", userID.String()))
		return nil, NewServiceError(OpStartSession, "failed to save session", err)
	}

	s.emit(ctx, events.TypeSessionStarted, state, struct{}{}, now)
	s.emitQueueBuilt(ctx, state, built, now)

	log.Info("study session started",
		slog.String("session_id", state.ID.String()),
		slog.String("user_id", userID.String()),
		slog.Int("cards", len(cards)),
		slog.String("queue_mode", string(built.Mode)),
		slog.Bool("queue_fallback", built.Fallback))
	return state, nil
}

// NextCard implements Service.NextCard.
func (s *studyServiceImpl) NextCard(
	ctx context.Context,
	sessionID uuid.UUID,
	env domain.EnvironmentalContext,
) (*NextCardResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("session_id", sessionID.String()))

	release, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, NewServiceError(OpNextCard, "session unavailable", err)
	}
	defer release()

	state, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, NewServiceError(OpNextCard, "failed to load session", err)
	}
	now := s.clock().UTC()

	rebuilt := false
	if len(state.ReviewQueue) == 0 && len(state.LookaheadBuffer) == 0 {
		cards, err := s.cards.ListByUser(ctx, state.UserID)
		if err != nil {
			return nil, NewServiceError(OpNextCard, "failed to load cards", err)
		}
		built := s.queue.Build(state, cards, env, now)
		state = built.ApplyTo(state, now)
		rebuilt = true
		s.emitQueueBuilt(ctx, state, built, now)
		log.Debug("session buffers rebuilt",
			slog.Int("review", len(state.ReviewQueue)),
			slog.Int("lookahead", len(state.LookaheadBuffer)))
	}

	candidates := s.candidates(state)
	if len(candidates) == 0 {
		if rebuilt {
			if err := s.sessions.Update(ctx, state); err != nil {
				return nil, NewServiceError(OpNextCard, "failed to save session", err)
			}
		}
		log.Debug("no cards available")
		return nil, NewServiceError(OpNextCard, "nothing to study", ErrNoCardsAvailable)
	}

	res, err := s.selector.SelectNext(state, candidates, now)
	if err != nil {
		log.Error("card selection failed", redact.Attr("error", err))
		return nil, NewServiceError(OpNextCard, "card selection failed", err)
	}

	next := state.WithSelection(res.Entry(now, s.cfg.AlgorithmVersion), res.Explanation, now)

	// Buffered cards are snapshots from queue build time; only the cluster
	// review stamp goes back to the stored card.
	var card *domain.Card
	err = s.tx.InTx(ctx, func(ctx context.Context, st store.Stores) error {
		stored, err := st.Cards.GetByID(ctx, res.Card.ID)
		if err != nil {
			return fmt.Errorf("failed to reload card: %w", err)
		}
		stored.LastClusterReview = now
		stored.UpdatedAt = now
		if err := st.Cards.Update(ctx, stored); err != nil {
			return fmt.Errorf("failed to update card: %w", err)
		}
		card = stored
		if err := st.Sessions.Update(ctx, next); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to persist selection", redact.Attr("error", err))
		return nil, NewServiceError(OpNextCard, "failed to persist selection", err)
	}

	s.emit(ctx, events.TypeCardSelected, next, events.CardSelectedPayload{
		CardID:     card.ID,
		Strategy:   string(res.Strategy),
		Confidence: res.Confidence,
		Fallback:   res.Fallback,
		Warnings:   res.Warnings,
	}, now)

	log.Debug("card selected",
		slog.String("card_id", card.ID.String()),
		slog.String("strategy", string(res.Strategy)),
		slog.Float64("confidence", res.Confidence))

	res.Card = card
	return &NextCardResult{Card: card, Selection: res, Session: next, Rebuilt: rebuilt}, nil
}

// candidates is the lookahead buffer plus the front of the review queue.
// In crisis mode the emergency buffer joins in, and in high-performance mode
// the challenge reserve does.
func (s *studyServiceImpl) candidates(state *domain.SessionState) []*domain.Card {
	out := make([]*domain.Card, 0, len(state.LookaheadBuffer)+s.cfg.FrontOfLineWindow)
	out = append(out, state.LookaheadBuffer...)
	front := state.ReviewQueue
	if len(front) > s.cfg.FrontOfLineWindow {
		front = front[:s.cfg.FrontOfLineWindow]
	}
	out = append(out, front...)

	switch queue.ModeFor(state) {
	case queue.ModeCrisis:
		out = append(out, state.EmergencyBuffer...)
	case queue.ModeHighPerformance:
		out = append(out, state.ChallengeReserve...)
	}
	return out
}

// SubmitResponse implements Service.SubmitResponse.
func (s *studyServiceImpl) SubmitResponse(
	ctx context.Context,
	sessionID uuid.UUID,
	input ResponseInput,
) (*ResponseResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("session_id", sessionID.String()),
		slog.String("card_id", input.CardID.String()))

	rating, err := validateInput(input)
	if err != nil {
		log.Warn("invalid response submitted", redact.Attr("error", err))
		return nil, NewServiceError(OpSubmitResponse, "invalid response", err)
	}

	release, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, NewServiceError(OpSubmitResponse, "session unavailable", err)
	}
	defer release()

	state, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, NewServiceError(OpSubmitResponse, "failed to load session", err)
	}
	if !hasPendingSelection(state, input.CardID) {
		return nil, NewServiceError(OpSubmitResponse, "card was not served", ErrCardNotInSession)
	}

	card, err := s.cards.GetByID(ctx, input.CardID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, NewServiceError(OpSubmitResponse, "card no longer exists", ErrCardNotInSession)
		}
		return nil, NewServiceError(OpSubmitResponse, "failed to load card", err)
	}
	if card.UserID != state.UserID {
		log.Warn("card owner differs from session user",
			slog.String("owner_id", card.UserID.String()),
			slog.String("user_id", state.UserID.String()))
		return nil, NewServiceError(OpSubmitResponse, "card belongs to another user", ErrSessionOwnership)
	}

	profile, retention, err := s.profile(ctx, state.UserID)
	if err != nil {
		return nil, NewServiceError(OpSubmitResponse, "failed to load profile", err)
	}
	history, err := s.responses.ListBySession(ctx, sessionID, s.cfg.HistoryWindow)
	if err != nil {
		return nil, NewServiceError(OpSubmitResponse, "failed to load response history", err)
	}

	now := s.clock().UTC()
	before := s.load.CurrentLoad(history, state, profile, now)
	resp, err := domain.NewResponseLog(card.ID, sessionID, rating, input.ResponseTimeMS, domain.ContextualFactors{
		SessionFatigue: state.FatigueIndex,
		CognitiveLoad:  before.CurrentLoad,
		Environment:    input.Environment,
	}, now)
	if err != nil {
		return nil, NewServiceError(OpSubmitResponse, "invalid response", errors.Join(ErrInvalidResponse, err))
	}

	result := s.engine.Calculate(card, *resp, profile)
	updated := s.engine.Apply(card, *resp, result, retention)

	next := s.momentum.Update(state, *resp)
	history = append(history, *resp)
	samples := s.momentum.PerformanceSamples(history, s.cfg.PerformanceWindow)
	buffers, adjustment := s.queue.AdjustDynamically(queue.BuffersOf(next), next, samples)
	next = buffers.ApplyTo(next, now)

	err = s.tx.InTx(ctx, func(ctx context.Context, st store.Stores) error {
		if err := st.Responses.Append(ctx, resp); err != nil {
			return fmt.Errorf("failed to append response: %w", err)
		}
		if err := st.Cards.Update(ctx, updated); err != nil {
			return fmt.Errorf("failed to update card: %w", err)
		}
		if err := st.Sessions.Update(ctx, next); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to persist response", redact.Attr("error", err))
		return nil, NewServiceError(OpSubmitResponse, "failed to persist response", err)
	}

	after := s.load.CurrentLoad(history, next, profile, now)
	interval := intervalDays(now, updated.NextReviewAt)

	s.emit(ctx, events.TypeResponseRecorded, next, events.ResponseRecordedPayload{
		CardID:         card.ID,
		Rating:         string(rating),
		ResponseTimeMS: input.ResponseTimeMS,
		Difficulty:     result.Difficulty,
		Stability:      result.Stability,
		Retrievability: result.Retrievability,
		Momentum:       next.MomentumScore,
		Fatigue:        next.FatigueIndex,
		IntervalDays:   interval,
		Adjustment:     string(adjustment),
	}, now)
	if after.AlertLevel == cogload.AlertOrange || after.AlertLevel == cogload.AlertRed {
		s.emit(ctx, events.TypeLoadAlert, next, events.LoadAlertPayload{
			AlertLevel:      string(after.AlertLevel),
			UtilizationRate: after.UtilizationRate,
			Sustainability:  after.SustainabilityScore,
		}, now)
	}

	log.Debug("response recorded",
		slog.String("rating", string(rating)),
		slog.Float64("difficulty", result.Difficulty),
		slog.Float64("stability", result.Stability),
		slog.Int("interval_days", interval),
		slog.Float64("momentum", next.MomentumScore),
		slog.Float64("fatigue", next.FatigueIndex))

	return &ResponseResult{
		Card:         updated,
		DSR:          result,
		IntervalDays: interval,
		NextReviewAt: updated.NextReviewAt,
		Momentum:     s.momentum.AnalyzeMomentum(next),
		Load:         after,
		Adjustment:   adjustment,
		Session:      next,
	}, nil
}

func validateInput(input ResponseInput) (domain.Rating, error) {
	if input.CardID == uuid.Nil {
		return "", fmt.Errorf("%w: card id is required", ErrInvalidResponse)
	}
	rating, err := domain.ParseRating(input.Rating)
	if err != nil {
		return "", errors.Join(ErrInvalidResponse, err)
	}
	if input.ResponseTimeMS < 0 {
		return "", errors.Join(ErrInvalidResponse, domain.ErrInvalidResponseTime)
	}
	return rating, nil
}

// hasPendingSelection reports whether cardID was selected in this session
// and has not been answered since.
func hasPendingSelection(state *domain.SessionState, cardID uuid.UUID) bool {
	for i := len(state.AdaptationHistory) - 1; i >= 0; i-- {
		if state.AdaptationHistory[i].CardID == cardID {
			return state.AdaptationHistory[i].Outcome == ""
		}
	}
	return false
}

func intervalDays(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}

// CognitiveLoad implements Service.CognitiveLoad.
func (s *studyServiceImpl) CognitiveLoad(ctx context.Context, sessionID uuid.UUID) (*cogload.Analysis, error) {
	state, history, profile, err := s.snapshot(ctx, sessionID)
	if err != nil {
		return nil, NewServiceError(OpCognitiveLoad, "failed to load session", err)
	}
	analysis := s.load.CurrentLoad(history, state, profile, s.clock().UTC())
	return &analysis, nil
}

// Analyze implements Service.Analyze.
func (s *studyServiceImpl) Analyze(ctx context.Context, sessionID uuid.UUID) (*Analysis, error) {
	state, history, profile, err := s.snapshot(ctx, sessionID)
	if err != nil {
		return nil, NewServiceError(OpAnalyze, "failed to load session", err)
	}
	queued := append(append([]*domain.Card{}, state.ReviewQueue...), state.LookaheadBuffer...)
	return &Analysis{
		Momentum:   s.momentum.AnalyzeMomentum(state),
		Flow:       s.momentum.AnalyzeFlowState(state),
		Load:       s.load.CurrentLoad(history, state, profile, s.clock().UTC()),
		Mode:       queue.ModeFor(state),
		Efficiency: s.queue.Efficiency(queued, state),
	}, nil
}

func (s *studyServiceImpl) snapshot(
	ctx context.Context,
	sessionID uuid.UUID,
) (*domain.SessionState, []domain.ResponseLog, *domain.UserProfile, error) {
	state, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, nil, nil, err
	}
	history, err := s.responses.ListBySession(ctx, sessionID, s.cfg.HistoryWindow)
	if err != nil {
		return nil, nil, nil, err
	}
	profile, _, err := s.profile(ctx, state.UserID)
	if err != nil {
		return nil, nil, nil, err
	}
	return state, history, profile, nil
}

// GetSession implements Service.GetSession.
func (s *studyServiceImpl) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.SessionState, error) {
	state, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, NewServiceError(OpGetSession, "failed to load session", err)
	}
	return state, nil
}

// EndSession implements Service.EndSession.
func (s *studyServiceImpl) EndSession(ctx context.Context, sessionID uuid.UUID) error {
	release, err := s.lock(ctx, sessionID)
	if err != nil {
		return NewServiceError(OpEndSession, "session unavailable", err)
	}
	defer release()

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if store.IsNotFoundError(err) {
			return NewServiceError(OpEndSession, "session does not exist", ErrSessionNotFound)
		}
		return NewServiceError(OpEndSession, "failed to delete session", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("study session ended",
		slog.String("session_id", sessionID.String()))
	return nil
}

func (s *studyServiceImpl) lock(ctx context.Context, sessionID uuid.UUID) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, turnWait)
	defer cancel()
	return s.locks.acquire(ctx, sessionID)
}

func (s *studyServiceImpl) getSession(ctx context.Context, sessionID uuid.UUID) (*domain.SessionState, error) {
	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return state, nil
}

// profile loads the user's profile. Users without one study with the
// defaults and the configured target retention.
func (s *studyServiceImpl) profile(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, float64, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if store.IsNotFoundError(err) {
			p = domain.DefaultUserProfile(userID)
			return p, s.cfg.TargetRetention, nil
		}
		return nil, 0, err
	}
	return p, p.Retention(), nil
}

func (s *studyServiceImpl) emitQueueBuilt(ctx context.Context, state *domain.SessionState, built queue.Result, now time.Time) {
	s.emit(ctx, events.TypeQueueBuilt, state, events.QueueBuiltPayload{
		Mode:      string(built.Mode),
		Fallback:  built.Fallback,
		Review:    len(built.ReviewQueue),
		Lookahead: len(built.LookaheadBuffer),
		Emergency: len(built.EmergencyBuffer),
		Challenge: len(built.ChallengeReserve),
	}, now)
}

// emit publishes an event. Failures are logged and never fail the turn.
func (s *studyServiceImpl) emit(ctx context.Context, eventType string, state *domain.SessionState, payload any, now time.Time) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	event, err := events.NewStudyEvent(eventType, state.ID, state.UserID, payload, now)
	if err != nil {
		log.Warn("failed to build study event",
			slog.String("event_type", eventType),
			redact.Attr("error", err))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("failed to emit study event",
			slog.String("event_type", eventType),
			redact.Attr("error", err))
	}
}
