package server

import (
	"path/filepath"
	"regexp"

	"creaza/internal/likecache"
	"creaza/internal/middleware"
	"creaza/internal/models"

	"github.com/gofiber/fiber/v2"
)

const deviceHeader = "X-Device-ID"

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// DeviceRequired rejects requests without a well-formed X-Device-ID.
func (s *Server) DeviceRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := s.deviceCache(c); !ok {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(deviceHeader+" header required"))
		}
		return c.Next()
	}
}

// deviceCache returns the like cache of the calling device, if the request
// names one. Redis is used when configured, a JSON file per device
// otherwise.
func (s *Server) deviceCache(c *fiber.Ctx) (*likecache.Cache, bool) {
	id := c.Get(deviceHeader)
	if !deviceIDPattern.MatchString(id) {
		return nil, false
	}

	s.deviceMu.Lock()
	defer s.deviceMu.Unlock()
	if cache, ok := s.deviceCaches[id]; ok {
		return cache, true
	}

	var kv likecache.KV
	if s.config.LikeCacheBackend == "redis" && s.redis != nil {
		kv = likecache.NewRedisKV(s.redis, id)
	} else {
		kv = likecache.NewFileKV(filepath.Join(s.config.LikeCachePath, id+".json"))
	}
	cache := likecache.New(kv)
	s.deviceCaches[id] = cache
	return cache, true
}

// reconcileDevice replaces the device's marks with the user's remote likes.
// Failures keep the local state.
func (s *Server) reconcileDevice(c *fiber.Ctx, userID string) {
	cache, ok := s.deviceCache(c)
	if !ok {
		return
	}
	ids, err := s.engagementService.LikedPinIDs(c.UserContext(), userID)
	if err != nil {
		return
	}
	_ = cache.Reconcile(c.UserContext(), ids)
}

// reconcileDevicePins drops device marks for pins the store reports as
// unliked.
func (s *Server) reconcileDevicePins(c *fiber.Ctx, pins []models.Pin) {
	if cache, ok := s.deviceCache(c); ok {
		_ = cache.ReconcilePins(c.UserContext(), pins)
	}
}

// GetDeviceLikes handles GET /api/devices/likes
func (s *Server) GetDeviceLikes(c *fiber.Ctx) error {
	cache, _ := s.deviceCache(c)
	return c.JSON(cache.Snapshot(c.UserContext()))
}

// ClearDeviceLikes handles DELETE /api/devices/likes
func (s *Server) ClearDeviceLikes(c *fiber.Ctx) error {
	cache, _ := s.deviceCache(c)
	if err := cache.Clear(c.UserContext()); err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ReconcileDeviceLikes handles POST /api/devices/likes/reconcile
func (s *Server) ReconcileDeviceLikes(c *fiber.Ctx) error {
	cache, _ := s.deviceCache(c)
	ids, err := s.engagementService.LikedPinIDs(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	if err := cache.Reconcile(c.UserContext(), ids); err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.JSON(cache.Snapshot(c.UserContext()))
}
