package middleware

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"creaza/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Logger writes request logs. Records pick up the request, user, device and
// trace ids stored on the context by ContextMiddleware.
var Logger *slog.Logger

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	TraceIDKey   contextKey = "trace_id"
	DeviceIDKey  contextKey = "device_id"
)

var contextAttrs = []contextKey{RequestIDKey, UserIDKey, DeviceIDKey, TraceIDKey}

// ctxHandler copies the non-empty context ids onto every record.
type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, key := range contextAttrs {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			r.AddAttrs(slog.String(string(key), v))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func init() {
	opts := &slog.HandlerOptions{Level: observability.Level()}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if os.Getenv("APP_ENV") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	Logger = slog.New(&ctxHandler{handler})
}

// ContextMiddleware moves the request, user, device and trace ids from
// fiber locals and headers into the request context, and tags it with a
// correlation id for repository logs.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		set := func(key contextKey, v string) {
			if v != "" {
				ctx = context.WithValue(ctx, key, v)
			}
		}

		rid, _ := c.Locals("requestid").(string)
		set(RequestIDKey, rid)
		set(UserIDKey, UserID(c))
		tid, _ := c.Locals("traceID").(string)
		set(TraceIDKey, tid)
		set(DeviceIDKey, strings.TrimSpace(c.Get("X-Device-ID")))

		cid := c.Get("X-Correlation-ID")
		if cid == "" {
			cid = observability.GenerateCorrelationID()
		}
		ctx = observability.WithCorrelationID(ctx, cid)
		c.Set("X-Correlation-ID", cid)

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger logs one line per request once it is handled. Server
// errors log at error level, client errors at warn. Health probes are only
// logged when they fail.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if strings.HasPrefix(c.Path(), "/health") && status < fiber.StatusBadRequest && err == nil {
			return nil
		}

		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("route", c.Route().Path),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", len(c.Response().Body())),
		}

		lvl, msg := slog.LevelInfo, "request processed"
		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			lvl, msg = slog.LevelError, "request failed"
		case status >= fiber.StatusInternalServerError:
			lvl = slog.LevelError
		case status >= fiber.StatusBadRequest:
			lvl = slog.LevelWarn
		}
		Logger.LogAttrs(c.UserContext(), lvl, msg, attrs...)
		return err
	}
}
