package middleware

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/makeasinger/musicgen/pkg/response"
)

// RateLimiter is a per-user fixed-window limiter backed by Redis counters.
type RateLimiter struct {
	redis  *redis.Client
	logger *log.Logger
}

func NewRateLimiter(redisClient *redis.Client, logger *log.Logger) *RateLimiter {
	if logger == nil {
		logger = log.Default()
	}
	return &RateLimiter{redis: redisClient, logger: logger.WithPrefix("ratelimit")}
}

// Limit allows maxRequests per window and user under keyPrefix. Requests
// pass when Redis is unavailable.
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == "" || maxRequests <= 0 {
			return c.Next()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, userID)
		ctx := c.UserContext()

		count, err := rl.redis.Incr(ctx, key).Result()
		if err != nil {
			rl.logger.Warn("rate limit check failed", "key", key, "err", err)
			return c.Next()
		}
		if count == 1 {
			rl.redis.Expire(ctx, key, window)
		}

		if count > int64(maxRequests) {
			ttl, _ := rl.redis.TTL(ctx, key).Result()
			c.Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			return response.RateLimited(c)
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))
		return c.Next()
	}
}

// CreateLimit limits task creation through the proxy routes.
func (rl *RateLimiter) CreateLimit(maxPerMin int) fiber.Handler {
	return rl.Limit("create", maxPerMin, time.Minute)
}

// JobsLimit limits background job submissions.
func (rl *RateLimiter) JobsLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("jobs", maxPerHour, time.Hour)
}
