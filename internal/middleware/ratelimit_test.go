package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRateLimit_DisabledOutsideProduction(t *testing.T) {
	for _, env := range []string{"", "test", "development", "stress"} {
		t.Run("env="+env, func(t *testing.T) {
			t.Setenv("APP_ENV", env)
			for i := 0; i < 3; i++ {
				allowed, err := CheckRateLimit(context.Background(), nil, "like", "device:tablet-01", 1, time.Minute)
				require.NoError(t, err)
				assert.True(t, allowed)
			}
		})
	}
}

func TestCheckRateLimit_NoStore(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	allowed, err := CheckRateLimit(context.Background(), nil, "like", "device:tablet-01", 1, time.Minute)
	assert.ErrorIs(t, err, errNoLimiter)
	assert.False(t, allowed)
}

func TestRateLimitMiddleware_FailPolicy(t *testing.T) {
	tests := []struct {
		name   string
		env    string
		policy FailPolicy
		want   int
	}{
		{"disabled in test", "test", FailClosed, http.StatusOK},
		{"open without redis", "production", FailOpen, http.StatusOK},
		{"closed without redis", "production", FailClosed, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.env)
			app := fiber.New()
			app.Post("/api/auth/login", RateLimitWithPolicy(nil, 1, time.Minute, tt.policy, "login"), func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestCheckRateLimit_CountsPerWindow(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := CheckRateLimit(ctx, rdb, "login", "ip:1.2.3.4", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := CheckRateLimit(ctx, rdb, "login", "ip:1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.True(t, mr.TTL("rl:login:ip:1.2.3.4") > 0)

	// other identities have their own budget
	allowed, err = CheckRateLimit(ctx, rdb, "login", "ip:5.6.7.8", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	mr.FastForward(time.Minute)
	allowed, err = CheckRateLimit(ctx, rdb, "login", "ip:1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimitMiddleware_Exceeded(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	app := fiber.New()
	app.Post("/login", RateLimit(rdb, 1, time.Minute, "login"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	statuses := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
		_ = resp.Body.Close()
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func TestRateLimitMiddleware_KeysByDevice(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	app := fiber.New()
	app.Get("/search", RateLimit(rdb, 1, 90*time.Second, "search"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	send := func(device string) *http.Response {
		req := httptest.NewRequest(http.MethodGet, "/search", nil)
		req.Header.Set("X-Device-ID", device)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	first := send("device-aaaaaaaa")
	assert.Equal(t, http.StatusOK, first.StatusCode)
	_ = first.Body.Close()

	blocked := send("device-aaaaaaaa")
	assert.Equal(t, http.StatusTooManyRequests, blocked.StatusCode)
	assert.Equal(t, "90", blocked.Header.Get(fiber.HeaderRetryAfter))
	body, err := io.ReadAll(blocked.Body)
	require.NoError(t, err)
	_ = blocked.Body.Close()
	assert.Contains(t, string(body), CodeRateLimited)

	other := send("device-bbbbbbbb")
	assert.Equal(t, http.StatusOK, other.StatusCode, "each device has its own budget")
	_ = other.Body.Close()

	assert.True(t, mr.Exists("rl:search:device:device-aaaaaaaa"))
}
