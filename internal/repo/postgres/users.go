package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/bookstore/internal/domain/user"
	"github.com/geocoder89/bookstore/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already used")
)

const userColumns = `id, name, email, password_hash, role, password_changed_at, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.prom.ObserveDB("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, name, email, password_hash, role, password_changed_at, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.PasswordChangedAt, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, ErrEmailAlreadyUsed
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_email", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			email,
		).Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.PasswordHash,
			&u.Role,
			&u.PasswordChangedAt,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		).Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.PasswordHash,
			&u.Role,
			&u.PasswordChangedAt,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

// UpdatePassword swaps the stored hash and bumps password_changed_at, which
// is what ultimately invalidates every session issued before this moment.
func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	return r.prom.ObserveDB("users.update_password", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users
			 SET password_hash = $2, password_changed_at = $3, updated_at = $3
			 WHERE id = $1`,
			id, passwordHash, changedAt,
		)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}

		return nil
	})
}

func (r *UsersRepo) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	return r.prom.ObserveDB("users.set_reset_token", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users
			 SET password_reset_token = $2, password_reset_expires = $3, updated_at = NOW()
			 WHERE id = $1`,
			id, tokenHash, expires,
		)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}

		return nil
	})
}

func (r *UsersRepo) ClearResetToken(ctx context.Context, id string) error {
	return r.prom.ObserveDB("users.clear_reset_token", func() error {
		_, err := r.pool.Exec(ctx,
			`UPDATE users
			 SET password_reset_token = NULL, password_reset_expires = NULL, updated_at = NOW()
			 WHERE id = $1`,
			id,
		)

		return err
	})
}

// ConsumeResetToken is the atomic find-and-clear for password resets.
// Matching, expiry check, hash swap and token clearing happen in one
// UPDATE, so two concurrent confirmations of the same token cannot both
// succeed: the loser matches zero rows and gets ErrUserNotFound.
func (r *UsersRepo) ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string, changedAt time.Time) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.consume_reset_token", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE users
			 SET password_hash = $2,
			     password_changed_at = $3,
			     password_reset_token = NULL,
			     password_reset_expires = NULL,
			     updated_at = $3
			 WHERE password_reset_token = $1
			   AND password_reset_expires > NOW()
			 RETURNING `+userColumns,
			tokenHash, newPasswordHash, changedAt,
		).Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.PasswordHash,
			&u.Role,
			&u.PasswordChangedAt,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}

	return u, nil
}
