package server

import (
	"creaza/internal/middleware"
	"creaza/internal/service"

	"github.com/gofiber/fiber/v2"
)

type panelRequest struct {
	Open bool `json:"open"`
}

// GetNotifications handles GET /api/notifications
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", service.DefaultNotificationWindow)
	return c.JSON(s.notificationService.ListUserNotifications(c.UserContext(), middleware.UserID(c), limit))
}

// GetUnreadCount handles GET /api/notifications/unread-count
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"unread": s.notificationService.UnreadCount(c.UserContext(), middleware.UserID(c)),
	})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := middleware.UserID(c)
	if feed, ok := s.feeds.Touch(userID); ok {
		err = feed.MarkRead(c.UserContext(), id)
	} else {
		err = s.notificationService.MarkRead(c.UserContext(), userID, id)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	n, err := s.notificationService.MarkAllRead(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	if feed, ok := s.feeds.Touch(userID); ok {
		feed.Nudge()
	}
	return c.JSON(fiber.Map{"marked": n})
}

// GetFeed handles GET /api/notifications/feed. The first call starts a
// polling feed for the user; later calls read its latest snapshot.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	feed := s.feeds.Acquire(middleware.UserID(c))
	return c.JSON(feed.Snapshot())
}

// SetFeedPanel handles PUT /api/notifications/feed/panel
func (s *Server) SetFeedPanel(c *fiber.Ctx) error {
	var req panelRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	feed := s.feeds.Acquire(middleware.UserID(c))
	feed.SetPanelOpen(req.Open)
	return c.JSON(feed.Snapshot())
}

// MarkAllFeedRead handles POST /api/notifications/feed/read-all
func (s *Server) MarkAllFeedRead(c *fiber.Ctx) error {
	feed := s.feeds.Acquire(middleware.UserID(c))
	if err := feed.MarkAllRead(c.UserContext()); err != nil {
		return respondError(c, err)
	}
	return c.JSON(feed.Snapshot())
}
