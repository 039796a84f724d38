// Package observability holds the gallery's slog loggers, prometheus metrics
// and OpenTelemetry setup.
package observability

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

type Logger struct {
	*slog.Logger
}

// GlobalLogger writes JSON to stdout at the level set by SetLevel.
var GlobalLogger *Logger

var level = new(slog.LevelVar)

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// Level is the shared level of every slog handler in the process.
func Level() slog.Leveler {
	return level
}

// SetLevel adjusts the global log level ("debug", "info", "warn", "error").
// Unknown values leave the level at info.
func SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}

type logContextKey string

// CorrelationID keys the id that ties a request's repository and service logs together.
const CorrelationID logContextKey = "correlation_id"

func GenerateCorrelationID() string {
	return uuid.NewString()
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID returns "" when ctx carries no id.
func ExtractCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(CorrelationID).(string)
	return id
}

func withFields(attrs []any, fields map[string]any) []any {
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

// RepoLogger logs operations on one store collection (pins, users,
// notifications...).
type RepoLogger struct {
	collection string
	logger     *Logger
}

func NewRepoLogger(collection string) *RepoLogger {
	return &RepoLogger{collection: collection, logger: GlobalLogger}
}

func (l *RepoLogger) emit(ctx context.Context, lvl slog.Level, msg, operation string, extra ...any) {
	attrs := append([]any{
		slog.String("collection", l.collection),
		slog.String("operation", operation),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}, extra...)
	l.logger.Log(ctx, lvl, msg, attrs...)
}

func (l *RepoLogger) LogCreate(ctx context.Context, fields map[string]any) {
	l.emit(ctx, slog.LevelInfo, "document created", "create", withFields(nil, fields)...)
}

// LogRead is debug level; reads are too frequent for info.
func (l *RepoLogger) LogRead(ctx context.Context, fields map[string]any) {
	l.emit(ctx, slog.LevelDebug, "document read", "read", withFields(nil, fields)...)
}

func (l *RepoLogger) LogUpdate(ctx context.Context, fields map[string]any) {
	l.emit(ctx, slog.LevelInfo, "document updated", "update", withFields(nil, fields)...)
}

func (l *RepoLogger) LogDelete(ctx context.Context, fields map[string]any) {
	l.emit(ctx, slog.LevelInfo, "document deleted", "delete", withFields(nil, fields)...)
}

func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	l.emit(ctx, slog.LevelError, "store operation failed", operation, slog.String("error", err.Error()))
}

// LogDegraded records a read failure that was answered with an empty result.
func (l *RepoLogger) LogDegraded(ctx context.Context, err error, operation string) {
	DegradedReads.WithLabelValues(l.collection, operation).Inc()
	l.emit(ctx, slog.LevelWarn, "read degraded to empty", operation, slog.String("error", err.Error()))
}

// LogIndexFallback records an ordered query that ran unordered and was
// sorted in memory.
func (l *RepoLogger) LogIndexFallback(ctx context.Context, operation string) {
	IndexFallbacks.WithLabelValues(l.collection, operation).Inc()
	l.emit(ctx, slog.LevelWarn, "composite index missing, sorting in memory", operation)
}

// ServiceLogger logs compound operations of the engagement and collection
// services.
type ServiceLogger struct {
	service string
}

func NewServiceLogger(service string) *ServiceLogger {
	return &ServiceLogger{service: service}
}

func (l *ServiceLogger) attrs(ctx context.Context, method string) []any {
	return []any{
		slog.String("service", l.service),
		slog.String("method", method),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
}

func (l *ServiceLogger) LogCall(ctx context.Context, method string, fields map[string]any) {
	GlobalLogger.DebugContext(ctx, "service call", withFields(l.attrs(ctx, method), fields)...)
}

// LogDrift records a compound write whose secondary write failed after the
// primary one was kept, e.g. a like counted without its notification.
func (l *ServiceLogger) LogDrift(ctx context.Context, method string, err error, fields map[string]any) {
	NotificationDrift.WithLabelValues(method).Inc()
	attrs := append(l.attrs(ctx, method), slog.String("error", err.Error()))
	GlobalLogger.WarnContext(ctx, "secondary write failed, primary kept", withFields(attrs, fields)...)
}
