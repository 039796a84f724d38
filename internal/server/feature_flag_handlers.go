package server

import (
	"creaza/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// flagSubject picks who a partial rollout is evaluated for: the signed-in
// user, else the anonymous device.
func flagSubject(c *fiber.Ctx) string {
	if uid := middleware.UserID(c); uid != "" {
		return uid
	}
	if device := c.Get("X-Device-ID"); device != "" {
		return "device:" + device
	}
	return ""
}

// GetFeatureFlags handles GET /api/feature-flags
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"configured": s.featureFlags.Raw(),
		"flags":      s.featureFlags.Snapshot(flagSubject(c)),
	})
}
