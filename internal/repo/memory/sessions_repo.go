package memory

import (
	"context"
	"sync"

	"github.com/geocoder89/bookstore/internal/repo/postgres"
	"github.com/geocoder89/bookstore/internal/session"
)

// SessionsRepo is the in-memory session store used by the integration
// tests, keyed by id hash like its SQL counterpart.
type SessionsRepo struct {
	mu    sync.RWMutex
	items map[string]session.Session
}

func NewSessionsRepo() *SessionsRepo {
	return &SessionsRepo{
		items: make(map[string]session.Session),
	}
}

func (r *SessionsRepo) Create(ctx context.Context, s session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[s.IDHash] = s

	return nil
}

func (r *SessionsRepo) Get(ctx context.Context, idHash string) (session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[idHash]

	if !ok {
		return session.Session{}, postgres.ErrSessionNotFound
	}

	return s, nil
}

func (r *SessionsRepo) Delete(ctx context.Context, idHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, idHash)

	return nil
}

func (r *SessionsRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for hash, s := range r.items {
		if s.UserID == userID {
			delete(r.items, hash)
		}
	}

	return nil
}
