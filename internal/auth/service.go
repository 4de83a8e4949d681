package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/bookstore/internal/config"
	"github.com/geocoder89/bookstore/internal/domain/user"
	"github.com/geocoder89/bookstore/internal/notifications"
	"github.com/geocoder89/bookstore/internal/repo/postgres"
	"github.com/geocoder89/bookstore/internal/security"
	"github.com/geocoder89/bookstore/internal/session"
	"github.com/google/uuid"
)

const minPasswordLen = 8

// Small store interfaces so tests can fake them easily.

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string, changedAt time.Time) (user.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, s session.Session) error
	Get(ctx context.Context, idHash string) (session.Session, error)
	Delete(ctx context.Context, idHash string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

// Service owns the session lifecycle and every credential mutation. The
// handlers and the auth middleware both go through it.
type Service struct {
	users    UserStore
	sessions SessionStore
	notifier notifications.Notifier
	log      *slog.Logger

	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
	origin     string
}

func NewService(users UserStore, sessions SessionStore, notifier notifications.Notifier, log *slog.Logger, cfg config.Config) *Service {
	return &Service{
		users:      users,
		sessions:   sessions,
		notifier:   notifier,
		log:        log,
		secret:     []byte(cfg.SessionSecret),
		sessionTTL: cfg.SessionTTL(),
		resetTTL:   cfg.ResetTokenTTL(),
		origin:     cfg.AppOrigin,
	}
}

// Signup creates a user and logs them straight in. The role is always
// "user" here; admin accounts only ever come from the seed path.
func (s *Service) Signup(ctx context.Context, name, email, password, passwordConfirm string) (user.User, string, error) {
	if err := checkPasswordPair(password, passwordConfirm); err != nil {
		return user.User{}, "", err
	}

	hash, err := security.HashPassword(password)

	if err != nil {
		return user.User{}, "", err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:                uuid.NewString(),
		Name:              name,
		Email:             email,
		PasswordHash:      hash,
		Role:              user.RoleUser,
		PasswordChangedAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	u, err = s.users.Create(ctx, u)

	if err != nil {
		return user.User{}, "", err
	}

	raw, err := s.issueSession(ctx, u.ID)

	if err != nil {
		return user.User{}, "", err
	}

	return u, raw, nil
}

// Login verifies credentials and mints a fresh session. Every failure
// collapses into ErrInvalidCredentials so the response cannot reveal
// which half was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (user.User, string, error) {
	u, err := s.users.GetByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return user.User{}, "", ErrInvalidCredentials
		}

		return user.User{}, "", err
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		return user.User{}, "", ErrInvalidCredentials
	}

	raw, err := s.issueSession(ctx, u.ID)

	if err != nil {
		return user.User{}, "", err
	}

	return u, raw, nil
}

// Logout destroys the session record. Idempotent: an absent or garbage
// session id is not an error, only a dead store is.
func (s *Service) Logout(ctx context.Context, rawSessionID string) error {
	if rawSessionID == "" {
		return nil
	}

	return s.sessions.Delete(ctx, security.HashSessionID(s.secret, rawSessionID))
}

// Authenticate resolves a raw session id to a live user. The checks run
// in a fixed order: cookie present, session exists, session unexpired,
// user still exists, password unchanged since the session was issued.
func (s *Service) Authenticate(ctx context.Context, rawSessionID string) (user.User, error) {
	if rawSessionID == "" {
		return user.User{}, ErrNoSession
	}

	idHash := security.HashSessionID(s.secret, rawSessionID)

	sess, err := s.sessions.Get(ctx, idHash)

	if err != nil {
		if errors.Is(err, postgres.ErrSessionNotFound) {
			return user.User{}, ErrSessionExpired
		}

		return user.User{}, err
	}

	if sess.Expired(time.Now().UTC()) {
		// best-effort cleanup, expiry itself is authoritative
		_ = s.sessions.Delete(ctx, idHash)

		return user.User{}, ErrSessionExpired
	}

	u, err := s.users.GetByID(ctx, sess.UserID)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return user.User{}, ErrUserGone
		}

		return user.User{}, err
	}

	// Freshness: any session issued before the last password change is
	// dead, including the one that was used to change it.
	if u.PasswordChangedAt.After(sess.CreatedAt) {
		return user.User{}, ErrPasswordChanged
	}

	return u, nil
}

// ForgotPassword stores a hashed one-shot token and mails the raw one.
// An unknown email is silently treated as success so the endpoint cannot
// be used to probe which addresses have accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			s.log.Debug("password reset requested for unknown email")
			return nil
		}

		return err
	}

	raw, err := security.NewOpaqueToken()

	if err != nil {
		return err
	}

	expires := time.Now().UTC().Add(s.resetTTL)

	if err := s.users.SetResetToken(ctx, u.ID, security.HashResetToken(raw), expires); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/api/v1/users/resetPassword/%s", s.origin, raw)

	if err := s.notifier.SendPasswordReset(ctx, u.Email, resetURL); err != nil {
		s.log.Error("reset email delivery failed", "err", err)

		// don't leave a live token behind for a mail we never sent
		if clearErr := s.users.ClearResetToken(ctx, u.ID); clearErr != nil {
			s.log.Error("could not clear reset token after delivery failure", "err", clearErr)
		}

		return ErrDelivery
	}

	return nil
}

// ResetPassword consumes a reset token atomically: match, expiry check,
// re-hash and token clearing are a single store update, so the same token
// can never be spent twice even under concurrent confirmations.
func (s *Service) ResetPassword(ctx context.Context, rawToken, password, passwordConfirm string) (user.User, string, error) {
	if err := checkPasswordPair(password, passwordConfirm); err != nil {
		return user.User{}, "", err
	}

	hash, err := security.HashPassword(password)

	if err != nil {
		return user.User{}, "", err
	}

	u, err := s.users.ConsumeResetToken(ctx, security.HashResetToken(rawToken), hash, time.Now().UTC())

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return user.User{}, "", ErrBadResetToken
		}

		return user.User{}, "", err
	}

	// A reset is account recovery: revoke every outstanding session, not
	// just the ones the freshness check would catch later.
	if err := s.sessions.DeleteAllForUser(ctx, u.ID); err != nil {
		s.log.Error("could not revoke sessions after password reset", "err", err)
	}

	raw, err := s.issueSession(ctx, u.ID)

	if err != nil {
		return user.User{}, "", err
	}

	return u, raw, nil
}

// UpdatePassword re-keys an already-authenticated user. The session it
// returns is the only one that survives the freshness check afterwards.
func (s *Service) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword, newPasswordConfirm string) (user.User, string, error) {
	u, err := s.users.GetByID(ctx, userID)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return user.User{}, "", ErrUserGone
		}

		return user.User{}, "", err
	}

	if err := security.CheckPassword(u.PasswordHash, currentPassword); err != nil {
		return user.User{}, "", ErrInvalidCredentials
	}

	if err := checkPasswordPair(newPassword, newPasswordConfirm); err != nil {
		return user.User{}, "", err
	}

	hash, err := security.HashPassword(newPassword)

	if err != nil {
		return user.User{}, "", err
	}

	changedAt := time.Now().UTC()

	if err := s.users.UpdatePassword(ctx, u.ID, hash, changedAt); err != nil {
		return user.User{}, "", err
	}

	u.PasswordHash = hash
	u.PasswordChangedAt = changedAt

	// Issued after changedAt, so this session alone passes freshness.
	raw, err := s.issueSession(ctx, u.ID)

	if err != nil {
		return user.User{}, "", err
	}

	return u, raw, nil
}

func (s *Service) issueSession(ctx context.Context, userID string) (string, error) {
	raw, err := security.NewOpaqueToken()

	if err != nil {
		return "", err
	}

	now := time.Now().UTC()

	sess := session.Session{
		IDHash:    security.HashSessionID(s.secret, raw),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return "", err
	}

	return raw, nil
}

func checkPasswordPair(password, confirm string) error {
	if len(password) < minPasswordLen {
		return ErrPasswordTooShort
	}

	if password != confirm {
		return ErrPasswordMismatch
	}

	return nil
}
