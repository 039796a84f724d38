package server

import (
	"creaza/internal/middleware"
	"creaza/internal/models"
	"creaza/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateProfileRequest struct {
	Username    *string `json:"username" validate:"omitempty,handle"`
	DisplayName *string `json:"display_name" validate:"omitempty,max=80"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
	Avatar      *string `json:"avatar" validate:"omitempty,url"`
}

// GetUsers handles GET /api/users
func (s *Server) GetUsers(c *fiber.Ctx) error {
	p := parsePagination(c, service.DefaultPageSize)
	return c.JSON(page(s.userService.ListUsers(c.UserContext(), p.Offset+p.Limit), p))
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	profile, err := s.userService.GetProfile(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// GetUserByUsername handles GET /api/users/by-username/:username
func (s *Server) GetUserByUsername(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetUserByEmail handles GET /api/users/by-email?email=
func (s *Server) GetUserByEmail(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return respondError(c, models.NewValidationError("email is required"))
	}
	user, err := s.userService.GetUserByEmail(c.UserContext(), email)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.userService.GetProfile(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PATCH /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	user, err := s.userService.UpdateProfile(c.UserContext(), middleware.UserID(c), models.ProfileUpdate{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Avatar:      req.Avatar,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetMyLikes handles GET /api/users/me/likes
func (s *Server) GetMyLikes(c *fiber.Ctx) error {
	ids, err := s.engagementService.LikedPinIDs(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"pin_ids": ids})
}

// GetUserPins handles GET /api/users/:id/pins
func (s *Server) GetUserPins(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, service.DefaultPageSize)
	return c.JSON(page(s.pinService.ListUserPins(c.UserContext(), id, p.Offset+p.Limit), p))
}

// GetUserCollections handles GET /api/users/:id/collections
func (s *Server) GetUserCollections(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return c.JSON(s.engagementService.ListUserCollections(c.UserContext(), id))
}

// GetFollowStatus handles GET /api/users/:id/follow
func (s *Server) GetFollowStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return c.JSON(fiber.Map{
		"following": s.userService.IsFollowing(c.UserContext(), middleware.UserID(c), id),
	})
}

// FollowUser handles POST /api/users/:id/follow
func (s *Server) FollowUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.userService.GetUserByID(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	follow, err := s.engagementService.Follow(c.UserContext(), middleware.UserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(follow)
}

// UnfollowUser handles DELETE /api/users/:id/follow
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.engagementService.Unfollow(c.UserContext(), middleware.UserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetDump handles GET /api/admin/dump
func (s *Server) GetDump(c *fiber.Ctx) error {
	return c.JSON(s.userService.Dump(c.UserContext()))
}
