// Package service implements the user-facing operations on top of the
// repositories: engagement (likes, comments, follows, collections), pins,
// profiles and notifications.
package service

import (
	"context"
	"encoding/json"
	"time"

	"creaza/internal/models"
	"creaza/internal/observability"

	"github.com/google/uuid"
)

// LoadTimeout bounds how long a page waits for a load before giving up.
const LoadTimeout = 5 * time.Second

// ErrLoadTimeout is returned by WithLoadTimeout when the deadline passes first.
var ErrLoadTimeout = models.NewInternalError(context.DeadlineExceeded)

// WithLoadTimeout waits up to timeout for load. The load keeps running after
// a timeout; only the wait is abandoned.
func WithLoadTimeout[T any](ctx context.Context, timeout time.Duration, load func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := load(context.WithoutCancel(ctx))
		done <- result{v, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case r := <-done:
		return r.v, r.err
	case <-timer.C:
		observability.GlobalLogger.WarnContext(ctx, "load timed out", "timeout", timeout)
		return zero, ErrLoadTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Publisher pushes a nudge to a user's notification channel.
type Publisher interface {
	PublishUser(ctx context.Context, userID, payload string) error
}

func newID() string {
	return uuid.NewString()
}

// notify stores n and nudges the recipient. The nudge is best effort.
func notify(ctx context.Context, create func(context.Context, models.Notification) error, pub Publisher, n models.Notification) error {
	if err := create(ctx, n); err != nil {
		return err
	}
	if pub == nil {
		return nil
	}
	payload, err := json.Marshal(n)
	if err == nil {
		err = pub.PublishUser(ctx, n.UserID, string(payload))
	}
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "notification publish failed",
			"notification_id", n.ID, "user_id", n.UserID, "error", err)
	}
	return nil
}
