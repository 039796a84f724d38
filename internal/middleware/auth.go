// Package middleware provides fiber middleware for authentication, request
// logging, tracing and rate limiting.
package middleware

import (
	"context"
	"errors"
	"strings"

	"creaza/internal/identity"
	"creaza/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the auth middleware.
const (
	LocalUserID = "userID"
	LocalUser   = "user"
	LocalToken  = "token"
)

// Authenticator resolves a bearer token to a profile.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthRequired rejects requests without a valid bearer token.
func AuthRequired(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		if err := authenticate(c, auth, token); err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		return c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and lets
// anonymous requests through. A present but invalid token is rejected.
func OptionalAuth(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return c.Next()
		}
		token, err := bearerToken(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		if err := authenticate(c, auth, token); err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		return c.Next()
	}
}

func authenticate(c *fiber.Ctx, auth Authenticator, token string) error {
	user, err := auth.Authenticate(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return models.NewUnauthorizedError("Invalid or expired token")
		}
		return models.NewUnauthorizedError(err.Error())
	}
	if user == nil {
		return models.NewUnauthorizedError("Unknown user")
	}
	c.Locals(LocalUserID, user.ID)
	c.Locals(LocalUser, user)
	c.Locals(LocalToken, token)
	return nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get("Authorization")
	if header == "" {
		return "", models.NewUnauthorizedError("Authorization header required")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || strings.TrimSpace(token) == "" {
		return "", models.NewUnauthorizedError("Invalid authorization header format")
	}
	return strings.TrimSpace(token), nil
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// CurrentUser returns the authenticated profile, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(LocalUser).(*models.User)
	return u
}

// Token returns the bearer token the request authenticated with.
func Token(c *fiber.Ctx) string {
	t, _ := c.Locals(LocalToken).(string)
	return t
}
