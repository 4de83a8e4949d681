package auth

import "errors"

// Sentinel errors for the auth flows. Handlers map these onto the HTTP
// envelope; anything not listed here is treated as internal.
var (
	// Deliberately undifferentiated: callers must not learn whether the
	// email or the password was wrong.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooShort = errors.New("password is too short")

	// Session resolution failures, in the order the middleware checks them.
	ErrNoSession       = errors.New("not logged in")
	ErrSessionExpired  = errors.New("session is invalid or has expired")
	ErrUserGone        = errors.New("the user no longer exists")
	ErrPasswordChanged = errors.New("password changed recently, please log in again")

	ErrBadResetToken = errors.New("token is invalid or has expired")
	ErrDelivery      = errors.New("could not send the reset email")
)
