package middlewares

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/bookstore/internal/redisclient"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter puts a fixed window counter in redis per (scope, client ip),
// so the limit holds across replicas. Credential endpoints are the target:
// login, signup, forgot-password.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(client *redisclient.Client, limit int, window time.Duration) *RateLimiter {
	if client == nil {
		return nil
	}

	return &RateLimiter{
		rdb:    client.Raw(),
		limit:  limit,
		window: window,
	}
}

// Limit returns the middleware for one scope. A nil limiter (no redis
// configured) and a redis outage both fail open: availability beats
// throttling here.
func (rl *RateLimiter) Limit(scope string) gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", scope, clientIP(c))

		ctx := c.Request.Context()

		count, err := rl.rdb.Incr(ctx, key).Result()

		if err != nil {
			c.Next()
			return
		}

		if count == 1 {
			_ = rl.rdb.Expire(ctx, key, rl.window).Err()
		}

		if count > int64(rl.limit) {
			retryAfter := int(rl.window.Seconds())

			if ttl, err := rl.rdb.TTL(ctx, key).Result(); err == nil && ttl > 0 {
				retryAfter = int(ttl.Seconds())
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  "fail",
				"message": "Too many requests. Please try again shortly.",
			})
			return
		}

		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()

	// normalize away any port that sneaks through
	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
