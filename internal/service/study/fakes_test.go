package study

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-uams/internal/domain"
	"github.com/phrazzld/scry-uams/internal/events"
	"github.com/phrazzld/scry-uams/internal/store"
)

// memStore is an in-memory implementation of every store the service uses.
// Cards and sessions are stored by value so callers cannot mutate them.
type memStore struct {
	mu        sync.Mutex
	cards     map[uuid.UUID]domain.Card
	sessions  map[uuid.UUID]domain.SessionState
	responses []domain.ResponseLog
	profiles  map[uuid.UUID]domain.UserProfile

	failUpdates error
}

func newMemStore() *memStore {
	return &memStore{
		cards:    make(map[uuid.UUID]domain.Card),
		sessions: make(map[uuid.UUID]domain.SessionState),
		profiles: make(map[uuid.UUID]domain.UserProfile),
	}
}

func (m *memStore) stores() store.Stores {
	return store.Stores{
		Cards:     &memCards{m},
		Sessions:  &memSessions{m},
		Responses: &memResponses{m},
	}
}

type memCards struct{ m *memStore }

func (c *memCards) Create(_ context.Context, card *domain.Card) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if _, ok := c.m.cards[card.ID]; ok {
		return store.ErrDuplicate
	}
	c.m.cards[card.ID] = *card.Clone()
	return nil
}

func (c *memCards) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	for _, card := range cards {
		if err := c.Create(ctx, card); err != nil {
			return err
		}
	}
	return nil
}

func (c *memCards) GetByID(_ context.Context, id uuid.UUID) (*domain.Card, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	card, ok := c.m.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	return card.Clone(), nil
}

func (c *memCards) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Card, error) {
	return c.list(func(card domain.Card) bool { return card.UserID == userID }), nil
}

func (c *memCards) ListDue(_ context.Context, userID uuid.UUID, now time.Time) ([]*domain.Card, error) {
	return c.list(func(card domain.Card) bool { return card.UserID == userID && card.IsDue(now) }), nil
}

func (c *memCards) list(keep func(domain.Card) bool) []*domain.Card {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	out := []*domain.Card{}
	for _, card := range c.m.cards {
		if keep(card) {
			out = append(out, card.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Front < out[j].Front })
	return out
}

func (c *memCards) Update(_ context.Context, card *domain.Card) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.m.failUpdates != nil {
		return c.m.failUpdates
	}
	if _, ok := c.m.cards[card.ID]; !ok {
		return store.ErrCardNotFound
	}
	c.m.cards[card.ID] = *card.Clone()
	return nil
}

func (c *memCards) WithTx(*sql.Tx) store.CardStore { return c }

type memSessions struct{ m *memStore }

func (s *memSessions) Create(_ context.Context, state *domain.SessionState) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.sessions[state.ID] = *state.Clone()
	return nil
}

func (s *memSessions) Get(_ context.Context, id uuid.UUID) (*domain.SessionState, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	state, ok := s.m.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return state.Clone(), nil
}

func (s *memSessions) Update(_ context.Context, state *domain.SessionState) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.sessions[state.ID]; !ok {
		return store.ErrSessionNotFound
	}
	s.m.sessions[state.ID] = *state.Clone()
	return nil
}

func (s *memSessions) Delete(_ context.Context, id uuid.UUID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.sessions[id]; !ok {
		return store.ErrSessionNotFound
	}
	delete(s.m.sessions, id)
	return nil
}

func (s *memSessions) WithTx(*sql.Tx) store.SessionStore { return s }

type memResponses struct{ m *memStore }

func (r *memResponses) Append(_ context.Context, resp *domain.ResponseLog) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.responses = append(r.m.responses, *resp)
	return nil
}

func (r *memResponses) ListBySession(_ context.Context, sessionID uuid.UUID, limit int) ([]domain.ResponseLog, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []domain.ResponseLog{}
	for _, resp := range r.m.responses {
		if resp.SessionID == sessionID {
			out = append(out, resp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *memResponses) WithTx(*sql.Tx) store.ResponseLogStore { return r }

type memProfiles struct{ m *memStore }

func (p *memProfiles) Get(_ context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	profile, ok := p.m.profiles[userID]
	if !ok {
		return nil, store.ErrUserProfileNotFound
	}
	return &profile, nil
}

func (p *memProfiles) Upsert(_ context.Context, profile *domain.UserProfile) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	p.m.profiles[profile.UserID] = *profile
	return nil
}

// memTx runs units of work directly against the in-memory stores.
type memTx struct {
	m    *memStore
	fail error
}

func (t *memTx) InTx(ctx context.Context, fn func(ctx context.Context, stores store.Stores) error) error {
	if t.fail != nil {
		return t.fail
	}
	return fn(ctx, t.m.stores())
}

// recordingEmitter keeps every emitted event.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.StudyEvent
}

func (r *recordingEmitter) EmitEvent(_ context.Context, e *events.StudyEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingEmitter) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// clock is a manually advanced study clock.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errBoom = errors.New("boom")
