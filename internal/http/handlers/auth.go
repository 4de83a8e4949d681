package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/bookstore/internal/auth"
	"github.com/geocoder89/bookstore/internal/config"
	"github.com/geocoder89/bookstore/internal/domain/user"
	"github.com/geocoder89/bookstore/internal/http/middlewares"
	"github.com/geocoder89/bookstore/internal/observability"
	"github.com/geocoder89/bookstore/internal/repo/postgres"
	"github.com/geocoder89/bookstore/internal/session"
	"github.com/gin-gonic/gin"
)

// Keep this interface local so tests can fake the whole service.
type AuthService interface {
	Signup(ctx context.Context, name, email, password, passwordConfirm string) (user.User, string, error)
	Login(ctx context.Context, email, password string) (user.User, string, error)
	Logout(ctx context.Context, rawSessionID string) error
	Authenticate(ctx context.Context, rawSessionID string) (user.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, password, passwordConfirm string) (user.User, string, error)
	UpdatePassword(ctx context.Context, userID, currentPassword, newPassword, newPasswordConfirm string) (user.User, string, error)
}

type AuthHandler struct {
	svc  AuthService
	opts session.Options
	prom *observability.Prom
}

func NewAuthHandler(svc AuthService, opts session.Options, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{
		svc:  svc,
		opts: opts,
		prom: prom,
	}
}

type SignUpRequest struct {
	Name            string `json:"name" binding:"required,min=1,max=120"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" binding:"required"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	u, rawSession, err := h.svc.Signup(cctx, req.Name, req.Email, req.Password, req.PasswordConfirm)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			h.prom.CountAuth("signup", "email_taken")
			RespondBadRequest(ctx, "Email is already in use.")
			return
		}

		if errors.Is(err, auth.ErrPasswordMismatch) || errors.Is(err, auth.ErrPasswordTooShort) {
			RespondBadRequest(ctx, err.Error())
			return
		}

		h.prom.CountAuth("signup", "error")
		RespondInternal(ctx, "Could not create user")
		return
	}

	h.prom.CountAuth("signup", "ok")
	h.setSessionCookie(ctx, rawSession)

	RespondSuccess(ctx, http.StatusCreated, gin.H{"user": u})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, rawSession, err := h.svc.Login(cctx, req.Email, req.Password)

	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.prom.CountAuth("login", "invalid_credentials")
			RespondUnauthorized(ctx, "Incorrect email or password")
			return
		}

		h.prom.CountAuth("login", "error")
		RespondInternal(ctx, "Could not log in")
		return
	}

	h.prom.CountAuth("login", "ok")
	h.setSessionCookie(ctx, rawSession)

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"user": gin.H{
			"id":   u.ID,
			"role": u.Role,
		},
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.opts.CookieName)

	if err != nil {
		raw = ""
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if err := h.svc.Logout(cctx, raw); err != nil {
		RespondInternal(ctx, "Error while logging out. Try again later!")
		return
	}

	h.clearSessionCookie(ctx)

	RespondMessage(ctx, http.StatusOK, "Logged out successfully!")
}

// Me resolves the current session if there is one. Never a 401: an
// anonymous caller simply gets a null user.
func (h *AuthHandler) Me(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.opts.CookieName)

	if err != nil {
		raw = ""
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.svc.Authenticate(cctx, raw)

	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNoSession),
			errors.Is(err, auth.ErrSessionExpired),
			errors.Is(err, auth.ErrUserGone),
			errors.Is(err, auth.ErrPasswordChanged):
			RespondSuccess(ctx, http.StatusOK, gin.H{"user": nil})
		default:
			// a dead store is an outage, not a logged-out caller
			RespondInternal(ctx, "Could not verify the session")
		}
		return
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{"user": u})
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	err := h.svc.ForgotPassword(cctx, req.Email)

	if err != nil {
		if errors.Is(err, auth.ErrDelivery) {
			h.prom.CountAuth("forgot_password", "delivery_failed")
			RespondInternal(ctx, "There was an error sending the email. Try again later!")
			return
		}

		h.prom.CountAuth("forgot_password", "error")
		RespondInternal(ctx, "Could not process the request")
		return
	}

	h.prom.CountAuth("forgot_password", "ok")

	// Same response whether or not the account exists.
	RespondMessage(ctx, http.StatusOK, "If that account exists, a reset link has been sent.")
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	rawToken := ctx.Param("token")

	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, rawSession, err := h.svc.ResetPassword(cctx, rawToken, req.Password, req.PasswordConfirm)

	if err != nil {
		if errors.Is(err, auth.ErrBadResetToken) {
			h.prom.CountAuth("reset_password", "bad_token")
			RespondBadRequest(ctx, "Token is invalid or has expired")
			return
		}

		if errors.Is(err, auth.ErrPasswordMismatch) || errors.Is(err, auth.ErrPasswordTooShort) {
			RespondBadRequest(ctx, err.Error())
			return
		}

		h.prom.CountAuth("reset_password", "error")
		RespondInternal(ctx, "Could not reset password")
		return
	}

	h.prom.CountAuth("reset_password", "ok")
	h.setSessionCookie(ctx, rawSession)

	RespondSuccess(ctx, http.StatusOK, gin.H{"user": u})
}

func (h *AuthHandler) UpdateMyPassword(ctx *gin.Context) {
	current, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnauthorized(ctx, "You are not logged in! Please log in to get access")
		return
	}

	var req UpdatePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, rawSession, err := h.svc.UpdatePassword(cctx, current.ID, req.PasswordCurrent, req.Password, req.PasswordConfirm)

	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.prom.CountAuth("update_password", "wrong_current")
			RespondUnauthorized(ctx, "Your current password is wrong.")
			return
		}

		if errors.Is(err, auth.ErrPasswordMismatch) || errors.Is(err, auth.ErrPasswordTooShort) {
			RespondBadRequest(ctx, err.Error())
			return
		}

		h.prom.CountAuth("update_password", "error")
		RespondInternal(ctx, "Could not update password")
		return
	}

	h.prom.CountAuth("update_password", "ok")
	h.setSessionCookie(ctx, rawSession)

	RespondSuccess(ctx, http.StatusOK, gin.H{"user": u})
}

// Cookie helpers. Every session cookie in the process goes through these
// two, with the one shared Options value deciding name/TTL/secure.

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, raw string) {
	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		h.opts.CookieName,
		raw,
		int(h.opts.TTL.Seconds()),
		"/",
		"",
		h.opts.Secure,
		true, // HttpOnly
	)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		h.opts.CookieName,
		"",
		-1,
		"/",
		"",
		h.opts.Secure,
		true,
	)
}
