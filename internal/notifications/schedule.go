package notifications

import (
	"context"
	"time"
)

// Schedule runs task once immediately and then every interval() until ctx
// is done. A signal on wake runs task right away and restarts the ticker
// with a freshly read interval.
func Schedule(ctx context.Context, interval func() time.Duration, wake <-chan struct{}, task func(context.Context)) {
	if ctx.Err() != nil {
		return
	}
	task(ctx)

	ticker := time.NewTicker(interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task(ctx)
		case <-wake:
			task(ctx)
			ticker.Reset(interval())
		}
	}
}
