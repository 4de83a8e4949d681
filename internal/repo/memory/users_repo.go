package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/bookstore/internal/domain/user"
	"github.com/geocoder89/bookstore/internal/repo/postgres"
)

type userRow struct {
	u            user.User
	resetHash    string
	resetExpires time.Time
}

// UsersRepo is the in-memory credential store used by the integration
// tests. It returns the same sentinel errors as the SQL repo so the auth
// service cannot tell them apart.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]*userRow // by id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]*userRow),
	}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.items {
		if row.u.Email == u.Email {
			return user.User{}, postgres.ErrEmailAlreadyUsed
		}
	}

	r.items[u.ID] = &userRow{u: u}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, row := range r.items {
		if row.u.Email == email {
			return row.u, nil
		}
	}

	return user.User{}, postgres.ErrUserNotFound
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.items[id]

	if !ok {
		return user.User{}, postgres.ErrUserNotFound
	}

	return row.u, nil
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.items[id]

	if !ok {
		return postgres.ErrUserNotFound
	}

	row.u.PasswordHash = passwordHash
	row.u.PasswordChangedAt = changedAt
	row.u.UpdatedAt = changedAt

	return nil
}

func (r *UsersRepo) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.items[id]

	if !ok {
		return postgres.ErrUserNotFound
	}

	row.resetHash = tokenHash
	row.resetExpires = expires

	return nil
}

func (r *UsersRepo) ClearResetToken(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if row, ok := r.items[id]; ok {
		row.resetHash = ""
		row.resetExpires = time.Time{}
	}

	return nil
}

// ConsumeResetToken mirrors the SQL repo's single-statement semantics:
// match, expiry check, hash swap and token clearing under one lock, so a
// token can only ever be spent once.
func (r *UsersRepo) ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string, changedAt time.Time) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.items {
		if row.resetHash != "" && row.resetHash == tokenHash && row.resetExpires.After(time.Now()) {
			row.u.PasswordHash = newPasswordHash
			row.u.PasswordChangedAt = changedAt
			row.u.UpdatedAt = changedAt
			row.resetHash = ""
			row.resetExpires = time.Time{}

			return row.u, nil
		}
	}

	return user.User{}, postgres.ErrUserNotFound
}
