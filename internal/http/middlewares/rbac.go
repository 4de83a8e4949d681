package middlewares

import (
	"net/http"

	"github.com/geocoder89/bookstore/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRole runs after RequireSession and checks the attached user
// against an allow-set. The set is fixed at route registration.
func (m *AuthMiddleware) RequireRole(allowed ...user.Role) gin.HandlerFunc {
	allowSet := make(map[user.Role]struct{}, len(allowed))

	for _, r := range allowed {
		allowSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		u, ok := CurrentUser(c)

		if !ok {
			abortUnauthenticated(c, "You are not logged in! Please log in to get access")
			return
		}

		if _, ok := allowSet[u.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"status":  "fail",
				"message": "You do not have permission to perform this action",
			})
			return
		}

		c.Next()
	}
}
