// Package queue maintains the card buffers of a study session: the review
// queue, the lookahead buffer, the emergency buffer of easy cards and the
// challenge reserve.
package queue

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/domain/selection"
)

// Mode is the session condition the buffers are built for.
type Mode string

// Queue modes
const (
	ModeCrisis          Mode = "crisis"
	ModeHighPerformance Mode = "high_performance"
	ModeNormal          Mode = "normal"
)

// ModeFor derives the queue mode from momentum and fatigue.
func ModeFor(state *domain.SessionState) Mode {
	switch {
	case state.FatigueIndex > 0.8,
		state.MomentumScore < 0.3 && state.MomentumTrend == domain.MomentumDeclining:
		return ModeCrisis
	case state.MomentumScore > 0.8 && state.FatigueIndex < 0.5:
		return ModeHighPerformance
	default:
		return ModeNormal
	}
}

// Buffers are the four disjoint card sequences of a session.
type Buffers struct {
	ReviewQueue      []*domain.Card `json:"review_queue"`
	LookaheadBuffer  []*domain.Card `json:"lookahead_buffer"`
	EmergencyBuffer  []*domain.Card `json:"emergency_buffer"`
	ChallengeReserve []*domain.Card `json:"challenge_reserve"`
}

// BuffersOf extracts the buffers of a session.
func BuffersOf(state *domain.SessionState) Buffers {
	return Buffers{
		ReviewQueue:      state.ReviewQueue,
		LookaheadBuffer:  state.LookaheadBuffer,
		EmergencyBuffer:  state.EmergencyBuffer,
		ChallengeReserve: state.ChallengeReserve,
	}
}

// ApplyTo returns a copy of state carrying these buffers.
func (b Buffers) ApplyTo(state *domain.SessionState, now time.Time) *domain.SessionState {
	return state.WithBuffers(b.ReviewQueue, b.LookaheadBuffer, b.EmergencyBuffer, b.ChallengeReserve, now)
}

// LogEntry is one line of the queue adaptation log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail"`
}

// Result is the outcome of Build.
type Result struct {
	Buffers
	Mode          Mode       `json:"mode"`
	Fallback      bool       `json:"fallback"`
	AdaptationLog []LogEntry `json:"adaptation_log"`
}

// Manager builds and adjusts session buffers using a card selector.
type Manager struct {
	selector *selection.Selector
	params   *Params
	logger   *slog.Logger
}

// NewManager creates a queue manager. A nil selector or params select the
// defaults and a nil logger selects slog.Default().
func NewManager(selector *selection.Selector, params *Params, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if selector == nil {
		selector = selection.NewSelector(nil, logger)
	}
	if params == nil {
		params = NewDefaultParams()
	}
	return &Manager{
		selector: selector,
		params:   params,
		logger:   logger.With(slog.String("component", "queue_manager")),
	}
}

// Build fills all four buffers from the available cards.
//
// Due cards are ranked by repeated selection against a simulated session
// and sliced into the review queue and lookahead buffer. The emergency and
// challenge buffers are drawn from the remaining available cards. Crisis
// mode reserves emergency cards first and high-performance mode reserves
// challenge cards first. Buffers never share a card.
//
// Build never fails: any internal error, including a selector panic, degrades
// to a FIFO slice of the available cards and is recorded in the log. A nil
// state is treated as a fresh session.
func (m *Manager) Build(
	state *domain.SessionState,
	available []*domain.Card,
	env domain.EnvironmentalContext,
	now time.Time,
) (res Result) {
	if state == nil {
		state = domain.NewSessionState(uuid.Nil, now)
	}
	cards := dedupe(available)

	defer func() {
		if r := recover(); r != nil {
			res = m.fifo(state, cards, now, fmt.Errorf("queue build panicked: %v", r))
		}
	}()

	out, err := m.build(state, cards, env, now)
	if err != nil {
		return m.fifo(state, cards, now, err)
	}
	return out
}

func (m *Manager) build(
	state *domain.SessionState,
	cards []*domain.Card,
	env domain.EnvironmentalContext,
	now time.Time,
) (Result, error) {
	p := m.params
	mode := ModeFor(state)
	res := Result{Mode: mode}
	logf := func(event, format string, args ...any) {
		res.AdaptationLog = append(res.AdaptationLog, LogEntry{
			Timestamp: now.UTC(),
			Event:     event,
			Detail:    fmt.Sprintf(format, args...),
		})
	}
	logf("mode", "building queue in %s mode", mode)

	lookahead := p.LookaheadSize
	if env.Offline() || env.PoorNetwork() {
		lookahead *= p.OfflineLookaheadFactor
		logf("prefetch", "unreliable network; lookahead extended to %d", lookahead)
	}

	placed := make(map[uuid.UUID]bool)
	switch mode {
	case ModeCrisis:
		res.EmergencyBuffer = m.emergency(cards, placed)
	case ModeHighPerformance:
		res.ChallengeReserve = m.challenge(cards, placed)
	}

	var due []*domain.Card
	for _, c := range cards {
		if !placed[c.ID] && c.IsDue(now) {
			due = append(due, c)
		}
	}

	ranked, err := m.rank(state, due, p.ReviewQueueSize+lookahead, now)
	if err != nil {
		return Result{}, err
	}
	logf("rank", "ranked %d of %d due cards", len(ranked), len(due))

	split := min(p.ReviewQueueSize, len(ranked))
	res.ReviewQueue = ranked[:split]
	res.LookaheadBuffer = ranked[split:]
	for _, c := range ranked {
		placed[c.ID] = true
	}

	if res.EmergencyBuffer == nil {
		res.EmergencyBuffer = m.emergency(cards, placed)
	}
	if res.ChallengeReserve == nil {
		res.ChallengeReserve = m.challenge(cards, placed)
	}
	logf("reserve", "%d emergency and %d challenge cards reserved",
		len(res.EmergencyBuffer), len(res.ChallengeReserve))

	return res, nil
}

// rank orders up to limit due cards by selecting one at a time, recording
// every pick in a simulated session so anti-clustering spreads related
// cards apart. Filter exhaustion on the first pick is an error; later on,
// the unranked remainder is appended in input order.
func (m *Manager) rank(state *domain.SessionState, due []*domain.Card, limit int, now time.Time) ([]*domain.Card, error) {
	strict := m.selector.Strict()
	sim := state.Clone()
	pool := append([]*domain.Card(nil), due...)
	var ranked []*domain.Card

	for len(pool) > 0 && len(ranked) < limit {
		pick, err := strict.SelectNext(sim, pool, now)
		if err != nil {
			if len(ranked) > 0 && errors.Is(err, selection.ErrFiltersExhausted) {
				rest := min(limit-len(ranked), len(pool))
				return append(ranked, pool[:rest]...), nil
			}
			return nil, fmt.Errorf("rank due cards: %w", err)
		}
		ranked = append(ranked, pick.Card)
		sim = sim.WithSelection(pick.Entry(now, "queue-rank"), pick.Explanation, now)
		pool = without(pool, pick.Card.ID)
	}
	return ranked, nil
}

// emergency reserves the most stable easy cards not placed yet.
func (m *Manager) emergency(cards []*domain.Card, placed map[uuid.UUID]bool) []*domain.Card {
	p := m.params
	var pool []*domain.Card
	for _, c := range cards {
		if !placed[c.ID] && c.Difficulty < p.EmergencyMaxDifficulty && c.Stability > p.EmergencyMinStability {
			pool = append(pool, c)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Stability > pool[j].Stability })
	return take(pool, p.EmergencySize, placed)
}

// challenge reserves the hardest or least reviewed cards not placed yet.
func (m *Manager) challenge(cards []*domain.Card, placed map[uuid.UUID]bool) []*domain.Card {
	p := m.params
	var pool []*domain.Card
	for _, c := range cards {
		if !placed[c.ID] && (c.Difficulty > p.ChallengeMinDifficulty || c.ReviewCount < p.ChallengeMaxReviews) {
			pool = append(pool, c)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Difficulty > pool[j].Difficulty })
	return take(pool, p.ChallengeSize, placed)
}

// take returns up to n cards and marks them placed.
func take(pool []*domain.Card, n int, placed map[uuid.UUID]bool) []*domain.Card {
	out := []*domain.Card{}
	for _, c := range pool {
		if len(out) == n {
			break
		}
		out = append(out, c)
		placed[c.ID] = true
	}
	return out
}

// fifo is the degraded queue: available cards in input order.
func (m *Manager) fifo(state *domain.SessionState, cards []*domain.Card, now time.Time, cause error) Result {
	p := m.params
	m.logger.Warn("adaptive queue failed, falling back to FIFO",
		slog.String("session_id", state.ID.String()),
		slog.String("error", cause.Error()),
		slog.Int("available", len(cards)))

	review := min(p.FIFOReviewSize, len(cards))
	lookahead := min(review+p.FIFOLookaheadSize, len(cards))
	return Result{
		Buffers: Buffers{
			ReviewQueue:      cards[:review],
			LookaheadBuffer:  cards[review:lookahead],
			EmergencyBuffer:  []*domain.Card{},
			ChallengeReserve: []*domain.Card{},
		},
		Mode:     ModeFor(state),
		Fallback: true,
		AdaptationLog: []LogEntry{{
			Timestamp: now.UTC(),
			Event:     "fallback",
			Detail:    cause.Error(),
		}},
	}
}

func dedupe(cards []*domain.Card) []*domain.Card {
	seen := make(map[uuid.UUID]bool, len(cards))
	out := make([]*domain.Card, 0, len(cards))
	for _, c := range cards {
		if c == nil || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

func without(cards []*domain.Card, id uuid.UUID) []*domain.Card {
	out := make([]*domain.Card, 0, len(cards))
	for _, c := range cards {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
