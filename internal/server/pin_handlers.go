package server

import (
	"context"
	"sort"
	"strings"
	"time"

	"creaza/internal/featureflags"
	"creaza/internal/middleware"
	"creaza/internal/models"
	"creaza/internal/ranking"
	"creaza/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPinRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	Image       string   `json:"image" validate:"omitempty,url"`
	Category    string   `json:"category" validate:"required,category"`
	Tags        []string `json:"tags" validate:"max=20,dive,max=40"`
}

type commentRequest struct {
	Text string `json:"text" validate:"required"`
}

// GetCategories handles GET /api/categories
func (s *Server) GetCategories(c *fiber.Ctx) error {
	return c.JSON(models.Categories())
}

// GetPins handles GET /api/pins
func (s *Server) GetPins(c *fiber.Ctx) error {
	p := parsePagination(c, service.DefaultPageSize)
	pins := s.pinService.ListPins(c.UserContext(), p.Offset+p.Limit)
	s.reconcileDevicePins(c, pins)
	return c.JSON(page(pins, p))
}

// GetPin handles GET /api/pins/:id
func (s *Server) GetPin(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	pin, err := s.pinService.GetPin(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pin)
}

// CreatePin handles POST /api/pins
func (s *Server) CreatePin(c *fiber.Ctx) error {
	var req createPinRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	pin, err := s.pinService.CreatePin(c.UserContext(), service.CreatePinInput{
		UserID:      middleware.UserID(c),
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
		Category:    req.Category,
		Tags:        req.Tags,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pin)
}

// SearchPins handles GET /api/pins/search?q=&category=&tags=a,b&categories=x,y
func (s *Server) SearchPins(c *fiber.Ctx) error {
	criteria := ranking.Criteria{
		Text:       c.Query("q"),
		Category:   models.Category(c.Query("category")),
		Tags:       splitList(c.Query("tags")),
		Categories: categoryList(c.Query("categories")),
	}
	pins := s.pinService.Search(c.UserContext(), criteria)

	if s.featureFlags.Enabled(featureflags.RankedSearch, flagSubject(c)) {
		now := time.Now()
		sort.SliceStable(pins, func(i, j int) bool {
			return ranking.Score(pins[i], now) > ranking.Score(pins[j], now)
		})
	}
	s.reconcileDevicePins(c, pins)
	return c.JSON(page(pins, parsePagination(c, service.DefaultPageSize)))
}

// GetTrendingPins handles GET /api/pins/trending
func (s *Server) GetTrendingPins(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	return c.JSON(s.pinService.Trending(c.UserContext(), p.Limit))
}

// GetTags handles GET /api/pins/tags
func (s *Server) GetTags(c *fiber.Ctx) error {
	return c.JSON(s.pinService.ListTags(c.UserContext()))
}

// GetPinComments handles GET /api/pins/:id/comments
func (s *Server) GetPinComments(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, service.DefaultPageSize)
	return c.JSON(s.pinService.ListPinComments(c.UserContext(), id, p.Limit))
}

// AddComment handles POST /api/pins/:id/comments
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req commentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	comment, err := s.engagementService.AddComment(c.UserContext(), service.AddCommentInput{
		PinID:  id,
		UserID: middleware.UserID(c),
		Text:   req.Text,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// LikePin handles POST /api/pins/:id/like
func (s *Server) LikePin(c *fiber.Ctx) error {
	return s.toggleLike(c, true)
}

// UnlikePin handles DELETE /api/pins/:id/like
func (s *Server) UnlikePin(c *fiber.Ctx) error {
	return s.toggleLike(c, false)
}

func (s *Server) toggleLike(c *fiber.Ctx, liked bool) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()

	var pin *models.Pin
	remote := func(ctx context.Context) error {
		var err error
		pin, err = s.engagementService.ToggleLike(ctx, id, liked, middleware.UserID(c))
		return err
	}

	if cache, ok := s.deviceCache(c); ok {
		err = cache.Toggle(ctx, id, liked, remote)
	} else {
		err = remote(ctx)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"pin": pin, "liked": liked})
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func categoryList(raw string) []models.Category {
	parts := splitList(raw)
	out := make([]models.Category, 0, len(parts))
	for _, p := range parts {
		out = append(out, models.Category(p))
	}
	return out
}
