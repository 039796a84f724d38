package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"creaza/internal/identity"
	"creaza/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authenticatorFunc func(ctx context.Context, token string) (*models.User, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, token string) (*models.User, error) {
	return f(ctx, token)
}

var testAuth = authenticatorFunc(func(_ context.Context, token string) (*models.User, error) {
	switch token {
	case "good":
		return &models.User{ID: "user-123", Username: "ana"}, nil
	case "orphan":
		return nil, nil
	case "broken":
		return nil, errors.New("provider unavailable")
	}
	return nil, identity.ErrInvalidToken
})

func TestAuthRequired(t *testing.T) {
	app := fiber.New()
	app.Get("/test", AuthRequired(testAuth), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": UserID(c), "username": CurrentUser(c).Username, "token": Token(c)})
	})

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUserID string
	}{
		{"Happy Path", "Bearer good", http.StatusOK, "user-123"},
		{"Missing Header", "", http.StatusUnauthorized, ""},
		{"Invalid Format", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ""},
		{"Empty Token", "Bearer ", http.StatusUnauthorized, ""},
		{"Invalid Token", "Bearer expired", http.StatusUnauthorized, ""},
		{"Missing Profile", "Bearer orphan", http.StatusUnauthorized, ""},
		{"Provider Failure", "Bearer broken", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.expectedUserID, body["userID"])
				assert.Equal(t, "ana", body["username"])
				assert.Equal(t, "good", body["token"])
			} else {
				var body models.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, models.CodeUnauthorized, body.Code)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/test", OptionalAuth(testAuth), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})

	run := func(header string) (int, string) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		buf := make([]byte, 64)
		n, _ := resp.Body.Read(buf)
		return resp.StatusCode, string(buf[:n])
	}

	status, body := run("")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "", body)

	status, body = run("Bearer good")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user-123", body)

	status, _ = run("Bearer expired")
	assert.Equal(t, http.StatusUnauthorized, status)
}
