package server

import (
	"creaza/internal/identity"
	"creaza/internal/middleware"
	"creaza/internal/models"

	"github.com/gofiber/fiber/v2"
)

type signupRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=6,max=128"`
	Username    string `json:"username" validate:"omitempty,handle"`
	DisplayName string `json:"display_name" validate:"max=80"`
	Bio         string `json:"bio" validate:"max=500"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, state, err := s.resolver.Register(c.UserContext(), req.Email, req.Password, identity.SignUpProfile{
		DisplayName: req.DisplayName,
		Username:    req.Username,
		Bio:         req.Bio,
	})
	if err != nil {
		return respondError(c, err)
	}

	s.reconcileDevice(c, user.ID)
	return c.Status(fiber.StatusCreated).JSON(authResponse{Token: state.Token, User: user})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, state, err := s.resolver.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	s.reconcileDevice(c, user.ID)
	return c.JSON(authResponse{Token: state.Token, User: user})
}

// Logout handles POST /api/auth/logout. The device like cache, when a
// device id is sent, is cleared.
func (s *Server) Logout(c *fiber.Ctx) error {
	err := s.resolver.LogoutToken(c.UserContext(), middleware.Token(c))
	s.feeds.Release(middleware.UserID(c))
	if cache, ok := s.deviceCache(c); ok {
		_ = cache.Clear(c.UserContext())
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Me handles GET /api/auth/me
func (s *Server) Me(c *fiber.Ctx) error {
	return c.JSON(middleware.CurrentUser(c))
}
