package db

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/bookstore/internal/config"
	"github.com/geocoder89/bookstore/internal/domain/user"
	"github.com/geocoder89/bookstore/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureAdminUser seeds the one admin account from env. This is the only
// path that assigns the admin role; signup never trusts a client-supplied
// role.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, cfg.AdminEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, password_changed_at, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		uuid.NewString(), cfg.AdminName, cfg.AdminEmail, hash, user.RoleAdmin, now, now, now,
	)

	return err
}
