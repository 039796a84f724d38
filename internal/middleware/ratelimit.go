package middleware

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"creaza/internal/cache"
	"creaza/internal/models"
	"creaza/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// CodeRateLimited is the error code of a rejected request.
const CodeRateLimited = "RATE_LIMITED"

var errNoLimiter = errors.New("rate limit store not configured")

// limitsDisabled reports whether APP_ENV turns rate limiting off. An unset
// APP_ENV counts as development.
func limitsDisabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// CheckRateLimit counts one request of caller against the named limit and
// reports whether it is still within limit per window. The counter and its
// expiry are set in one transaction; the window starts at the first request.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, name, caller string, limit int, window time.Duration) (bool, error) {
	if limitsDisabled() {
		return true, nil
	}
	if rdb == nil {
		return false, errNoLimiter
	}

	key := cache.RateLimitKey(name, caller)
	var incr *redis.IntCmd
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		observability.RedisErrorRate.WithLabelValues("rate_limit").Inc()
		return false, err
	}
	return incr.Val() <= int64(limit), nil
}

// callerKey identifies who is being limited: the signed-in user, else the
// device, else the remote IP.
func callerKey(c *fiber.Ctx) (string, string) {
	if uid := UserID(c); uid != "" {
		return "user:" + uid, "user"
	}
	if device := strings.TrimSpace(c.Get("X-Device-ID")); device != "" && len(device) <= 64 {
		return "device:" + device, "device"
	}
	return "ip:" + c.IP(), "ip"
}

// RateLimit allows limit requests per window for each caller and fails open
// when Redis is unavailable. name defaults to the request path.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit failure policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	retryAfter := strconv.Itoa(int(window.Round(time.Second) / time.Second))

	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		limitName := c.Path()
		if len(name) > 0 {
			limitName = name[0]
		}
		caller, keyedBy := callerKey(c)

		allowed, err := CheckRateLimit(ctx, rdb, limitName, caller, limit, window)
		if err != nil {
			if policy == FailOpen {
				return c.Next()
			}
			observability.GlobalLogger.WarnContext(ctx, "rate limit unavailable, rejecting",
				"limit", limitName, "path", c.Path(), "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
				Error: "rate limit unavailable",
				Code:  models.CodeInternal,
			})
		}

		if !allowed {
			observability.RateLimited.WithLabelValues(limitName, keyedBy).Inc()
			c.Set(fiber.HeaderRetryAfter, retryAfter)
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "rate limit exceeded",
				Code:  CodeRateLimited,
			})
		}
		return c.Next()
	}
}
