package server

import (
	"context"

	"creaza/internal/middleware"
	"creaza/internal/models"
	"creaza/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createCollectionRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// CreateCollection handles POST /api/collections
func (s *Server) CreateCollection(c *fiber.Ctx) error {
	var req createCollectionRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	col, err := s.engagementService.CreateCollection(c.UserContext(), service.CreateCollectionInput{
		UserID:      middleware.UserID(c),
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(col)
}

// GetCollection handles GET /api/collections/:id
func (s *Server) GetCollection(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	col, err := s.engagementService.GetCollection(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(col)
}

// DeleteCollection handles DELETE /api/collections/:id
func (s *Server) DeleteCollection(c *fiber.Ctx) error {
	col, err := s.ownedCollection(c)
	if err != nil {
		return nil
	}
	if err := s.engagementService.DeleteCollection(c.UserContext(), col.ID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddPinToCollection handles POST /api/collections/:id/pins/:pinId
func (s *Server) AddPinToCollection(c *fiber.Ctx) error {
	return s.editCollection(c, s.engagementService.AddPinToCollection)
}

// RemovePinFromCollection handles DELETE /api/collections/:id/pins/:pinId
func (s *Server) RemovePinFromCollection(c *fiber.Ctx) error {
	return s.editCollection(c, s.engagementService.RemovePinFromCollection)
}

func (s *Server) editCollection(c *fiber.Ctx, edit func(ctx context.Context, collectionID, pinID string) (*models.Collection, error)) error {
	col, err := s.ownedCollection(c)
	if err != nil {
		return nil
	}
	pinID, err := s.parseID(c, "pinId")
	if err != nil {
		return nil
	}
	updated, err := edit(c.UserContext(), col.ID, pinID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

// ownedCollection loads the :id collection and checks that the caller owns
// it. On failure the response is already written.
func (s *Server) ownedCollection(c *fiber.Ctx) (*models.Collection, error) {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil, err
	}
	col, err := s.engagementService.GetCollection(c.UserContext(), id)
	if err != nil {
		_ = respondError(c, err)
		return nil, errResponseWritten
	}
	if err := requireOwner(c, col.UserID); err != nil {
		return nil, err
	}
	return col, nil
}
