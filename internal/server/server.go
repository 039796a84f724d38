// Package server exposes the pin gallery over a fiber JSON API.
package server

import (
	"context"
	"sync"
	"time"

	"creaza/internal/bootstrap"
	"creaza/internal/config"
	"creaza/internal/docstore"
	"creaza/internal/featureflags"
	"creaza/internal/identity"
	"creaza/internal/likecache"
	"creaza/internal/middleware"
	"creaza/internal/models"
	"creaza/internal/notifications"
	"creaza/internal/observability"
	"creaza/internal/repository"
	"creaza/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

// feedIdleTimeout is how long a notification feed keeps polling after the
// last request that read it.
const feedIdleTimeout = 10 * time.Minute

// Deps are the already-initialized dependencies of a Server.
type Deps struct {
	Store    docstore.Store
	Redis    *redis.Client
	Provider identity.Provider
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	store          docstore.Store
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	repos        *repository.Repositories
	resolver     *identity.Resolver
	notifier     *notifications.Notifier
	feeds        *notifications.Registry
	featureFlags *featureflags.Manager

	pinService          *service.PinService
	engagementService   *service.EngagementService
	userService         *service.UserService
	notificationService *service.NotificationService

	deviceMu     sync.Mutex
	deviceCaches map[string]*likecache.Cache
}

// NewServer connects to the configured store, Redis and identity provider
// and builds a Server on top of them.
func NewServer(ctx context.Context, cfg *config.Config, opts bootstrap.Options) (*Server, error) {
	rt, err := bootstrap.InitRuntime(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, Deps{Store: rt.Store, Redis: rt.Redis, Provider: rt.Provider}), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes the store and Redis.
func NewServerWithDeps(cfg *config.Config, deps Deps) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	repos := repository.New(deps.Store)
	notifier := notifications.NewNotifier(deps.Redis)

	feedCfg := notifications.FeedConfig{
		OpenInterval:   cfg.FeedOpenInterval,
		ClosedInterval: cfg.FeedClosedInterval,
		Window:         cfg.FeedWindow,
	}

	s := &Server{
		config:       cfg,
		store:        deps.Store,
		redis:        deps.Redis,
		shutdownCtx:  ctx,
		shutdownFn:   cancel,
		repos:        repos,
		resolver:     identity.NewResolver(deps.Provider, repos.Users, nil),
		notifier:     notifier,
		featureFlags: featureflags.NewManager(cfg.FeatureFlags),
		deviceCaches: make(map[string]*likecache.Cache),
	}
	s.feeds = notifications.NewRegistry(ctx, func(userID string) *notifications.FeedController {
		return notifications.NewFeedController(userID, repos, feedCfg)
	})
	s.pinService = service.NewPinService(repos, cfg.SearchCandidateLimit)
	s.engagementService = service.NewEngagementService(repos, notifier)
	s.userService = service.NewUserService(repos)
	s.notificationService = service.NewNotificationService(repos)
	return s
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit (the limiter) so error
	// responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Device-ID, X-Correlation-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// 100 requests per minute per device, or per IP for callers without one
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			if device := c.Get("X-Device-ID"); device != "" && len(device) <= 64 {
				return "device:" + device
			}
			return "ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "too many requests, try again later",
				Code:  middleware.CodeRateLimited,
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	authRequired := middleware.AuthRequired(s.resolver)
	optionalAuth := middleware.OptionalAuth(s.resolver)

	api.Get("/categories", s.GetCategories)
	api.Get("/feature-flags", optionalAuth, s.GetFeatureFlags)

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", authRequired, s.Logout)
	auth.Get("/me", authRequired, s.Me)

	// Specific /pins/<word> routes before the generic /:id route
	pins := api.Group("/pins")
	pins.Get("/", optionalAuth, s.GetPins)
	pins.Get("/search", middleware.RateLimit(s.redis, 30, time.Minute, "search"), optionalAuth, s.SearchPins)
	pins.Get("/trending", s.GetTrendingPins)
	pins.Get("/tags", s.GetTags)
	pins.Post("/", authRequired, middleware.RateLimit(s.redis, 10, 5*time.Minute, "create_pin"), s.CreatePin)
	pins.Get("/:id/comments", s.GetPinComments)
	pins.Post("/:id/comments", authRequired, middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.AddComment)
	pins.Post("/:id/like", authRequired, s.LikePin)
	pins.Delete("/:id/like", authRequired, s.UnlikePin)
	pins.Get("/:id", s.GetPin)

	users := api.Group("/users")
	users.Get("/", s.GetUsers)
	users.Get("/me", authRequired, s.GetMyProfile)
	users.Patch("/me", authRequired, s.UpdateMyProfile)
	users.Get("/me/likes", authRequired, s.GetMyLikes)
	users.Get("/by-username/:username", s.GetUserByUsername)
	users.Get("/by-email", authRequired, s.GetUserByEmail)
	users.Get("/:id/pins", s.GetUserPins)
	users.Get("/:id/collections", s.GetUserCollections)
	users.Get("/:id/follow", authRequired, s.GetFollowStatus)
	users.Post("/:id/follow", authRequired, s.FollowUser)
	users.Delete("/:id/follow", authRequired, s.UnfollowUser)
	users.Get("/:id", s.GetUserProfile)

	collections := api.Group("/collections")
	collections.Post("/", authRequired, s.CreateCollection)
	collections.Get("/:id", s.GetCollection)
	collections.Delete("/:id", authRequired, s.DeleteCollection)
	collections.Post("/:id/pins/:pinId", authRequired, s.AddPinToCollection)
	collections.Delete("/:id/pins/:pinId", authRequired, s.RemovePinFromCollection)

	notes := api.Group("/notifications", authRequired)
	notes.Get("/", s.GetNotifications)
	notes.Get("/unread-count", s.GetUnreadCount)
	notes.Post("/read-all", s.MarkAllNotificationsRead)
	notes.Get("/feed", s.GetFeed)
	notes.Put("/feed/panel", s.SetFeedPanel)
	notes.Post("/feed/read-all", s.MarkAllFeedRead)
	notes.Post("/:id/read", s.MarkNotificationRead)

	devices := api.Group("/devices/likes", s.DeviceRequired())
	devices.Get("/", s.GetDeviceLikes)
	devices.Delete("/", s.ClearDeviceLikes)
	devices.Post("/reconcile", authRequired, s.ReconcileDeviceLikes)

	admin := api.Group("/admin", authRequired, s.NonProductionOnly())
	admin.Get("/dump", s.GetDump)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	storeStatus := "healthy"
	if s.store == nil || s.store.Ping(ctx) != nil {
		storeStatus = "unhealthy"
	}

	// Redis is optional: without it the server still serves every route.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if storeStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"store": storeStatus,
			"redis": redisStatus,
			"feeds": s.feeds.Len(),
		},
		"time": time.Now(),
	})
}

// NonProductionOnly hides admin tooling in production.
func (s *Server) NonProductionOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s.config.Env == "production" {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Route", c.Path()))
		}
		return c.Next()
	}
}

func (s *Server) newApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName: "creaza API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, fe)
			}
			observability.GlobalLogger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
}

// App builds the fiber app with middleware and routes, without listening.
func (s *Server) App() *fiber.App {
	if s.app == nil {
		s.promMiddleware = middleware.InitMetrics("creaza-api")
		s.app = s.newApp()
		s.SetupMiddleware(s.app)
		s.SetupRoutes(s.app)
	}
	return s.app
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()

	if s.redis != nil && s.featureFlags.On(featureflags.FeedPush) {
		if err := s.feeds.StartWiring(s.shutdownCtx, s.notifier, feedIdleTimeout); err != nil {
			observability.GlobalLogger.Error("failed to start feed wiring", "error", err)
		}
	} else {
		go notifications.Schedule(s.shutdownCtx, func() time.Duration { return feedIdleTimeout }, nil, func(context.Context) {
			s.feeds.Evict(feedIdleTimeout)
		})
	}

	observability.GlobalLogger.Info("Server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.GlobalLogger.Error("error shutting down HTTP server", "error", err)
		}
	}

	s.feeds.Shutdown()

	if s.store != nil {
		if err := s.store.Close(ctx); err != nil {
			observability.GlobalLogger.Error("error closing store", "error", err)
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			observability.GlobalLogger.Error("error closing redis", "error", err)
		}
	}

	observability.GlobalLogger.Info("Server shutdown complete")
	return nil
}
