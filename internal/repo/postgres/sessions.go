package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/bookstore/internal/observability"
	"github.com/geocoder89/bookstore/internal/session"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionsRepo persists sessions next to the users they reference. Rows
// are keyed by the HMAC of the opaque id, never the raw cookie value.
type SessionsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewSessionsRepo(pool *pgxpool.Pool, prom *observability.Prom) *SessionsRepo {
	return &SessionsRepo{pool: pool, prom: prom}
}

func (r *SessionsRepo) Create(ctx context.Context, s session.Session) error {
	return r.prom.ObserveDB("sessions.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO sessions (id_hash, user_id, created_at, expires_at)
			 VALUES ($1,$2,$3,$4)`,
			s.IDHash, s.UserID, s.CreatedAt, s.ExpiresAt,
		)
		return err
	})
}

func (r *SessionsRepo) Get(ctx context.Context, idHash string) (session.Session, error) {
	var s session.Session

	err := r.prom.ObserveDB("sessions.get", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id_hash, user_id, created_at, expires_at
			 FROM sessions
			 WHERE id_hash = $1`,
			idHash,
		).Scan(&s.IDHash, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Session{}, ErrSessionNotFound
		}

		return session.Session{}, err
	}

	return s, nil
}

// Delete is idempotent: removing an already-absent session is not an error.
func (r *SessionsRepo) Delete(ctx context.Context, idHash string) error {
	return r.prom.ObserveDB("sessions.delete", func() error {
		_, err := r.pool.Exec(ctx,
			`DELETE FROM sessions WHERE id_hash = $1`,
			idHash,
		)
		return err
	})
}

func (r *SessionsRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	return r.prom.ObserveDB("sessions.delete_all_for_user", func() error {
		_, err := r.pool.Exec(ctx,
			`DELETE FROM sessions WHERE user_id = $1`,
			userID,
		)
		return err
	})
}

// DeleteExpired backs the hourly janitor; resolution never depends on
// it since expiry is checked on every access.
func (r *SessionsRepo) DeleteExpired(ctx context.Context) (int64, error) {
	var n int64

	err := r.prom.ObserveDB("sessions.delete_expired", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)

		if err != nil {
			return err
		}

		n = tag.RowsAffected()
		return nil
	})

	return n, err
}
