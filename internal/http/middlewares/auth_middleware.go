package middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/bookstore/internal/auth"
	"github.com/geocoder89/bookstore/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, rawSessionID string) (user.User, error)
}

type AuthMiddleware struct {
	svc        SessionAuthenticator
	cookieName string
}

func NewAuthMiddleware(svc SessionAuthenticator, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{svc: svc, cookieName: cookieName}
}

// RequireSession is the gate in front of every protected route:
// cookie -> session -> user -> freshness, failing closed at each step.
func (m *AuthMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(m.cookieName)

		if err != nil || raw == "" {
			abortUnauthenticated(c, "You are not logged in! Please log in to get access")
			return
		}

		u, err := m.svc.Authenticate(c.Request.Context(), raw)

		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUserGone):
				abortUnauthenticated(c, "The user no longer exists.")
			case errors.Is(err, auth.ErrPasswordChanged):
				abortUnauthenticated(c, "User recently changed password! Please log in again.")
			case errors.Is(err, auth.ErrNoSession), errors.Is(err, auth.ErrSessionExpired):
				abortUnauthenticated(c, "You are not logged in! Please log in to get access")
			default:
				// store unreachable, not the client's fault
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"status":  "error",
					"message": "Could not verify the session",
				})
			}
			return
		}

		c.Set(ctxUserKey, u)

		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"status":  "fail",
		"message": message,
	})
}

// CurrentUser returns the user attached by RequireSession.
func CurrentUser(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(ctxUserKey)

	if !ok {
		return user.User{}, false
	}

	u, ok := v.(user.User)

	return u, ok
}
