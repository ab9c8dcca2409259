package api

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const localProfileID = "profile_id"

// TokenVerifier resolves a bearer token to a canonical profile id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RateLimiter is the redis-backed fixed-window counter.
type RateLimiter interface {
	Allow(ctx context.Context, prefix, key string, limit int, window time.Duration) (bool, error)
}

// AuthMiddleware resolves the caller identity before any core handler runs.
func AuthMiddleware(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			return respondError(c, fiber.StatusUnauthorized, "missing bearer token")
		}
		profileID, err := verifier.Verify(header[len(prefix):])
		if err != nil {
			return respondError(c, fiber.StatusUnauthorized, "invalid token")
		}
		c.Locals(localProfileID, profileID)
		return c.Next()
	}
}

func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals(localProfileID).(string)
	return id
}

// RateLimitMiddleware bounds message appends per caller. A limiter outage
// fails open: losing rate limiting is cheaper than losing messaging.
func RateLimitMiddleware(limiter RateLimiter, perMinute int, log *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.Next()
		}
		ok, err := limiter.Allow(c.UserContext(), "ratelimit:append", callerID(c), perMinute, time.Minute)
		if err != nil {
			log.Warnw("rate limiter unavailable", "error", err)
			return c.Next()
		}
		if !ok {
			return respondError(c, fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}
