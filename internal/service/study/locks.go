package study

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// sessionLocks hands out one single-slot semaphore per session. Entries are
// reference counted and dropped once no turn holds or waits for them.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{entries: make(map[uuid.UUID]*lockEntry)}
}

// acquire blocks until the session is free or ctx ends. The returned
// function releases the session.
func (l *sessionLocks) acquire(ctx context.Context, id uuid.UUID) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[id]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		l.drop(id, e)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrSessionBusy
		}
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			l.drop(id, e)
		})
	}, nil
}

func (l *sessionLocks) drop(id uuid.UUID, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
