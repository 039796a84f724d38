// Package likecache is the device-local record of which pins this device
// has liked. It is a projection for rendering only; the store's per-user
// like marks are authoritative and the cache is reconciled against them.
package likecache

import (
	"context"
	"encoding/json"
	"maps"
	"sync"
	"time"

	"creaza/internal/identity"
	"creaza/internal/models"
	"creaza/internal/observability"
)

// StorageKey is the key the like set is stored under.
const StorageKey = "creaza_user_likes"

// reconcileTimeout bounds the remote fetch made on sign-in.
const reconcileTimeout = 5 * time.Second

// Cache is safe for concurrent use.
type Cache struct {
	mu sync.Mutex
	kv KV
}

func New(kv KV) *Cache {
	return &Cache{kv: kv}
}

// load returns the stored set. Unreadable or corrupt data reads as empty.
func (c *Cache) load(ctx context.Context) map[string]bool {
	likes := map[string]bool{}
	data, err := c.kv.Get(ctx, StorageKey)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "like cache read failed", "error", err)
		return likes
	}
	if len(data) == 0 {
		return likes
	}
	if err := json.Unmarshal(data, &likes); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "like cache is corrupt, starting empty", "error", err)
		return map[string]bool{}
	}
	return likes
}

func (c *Cache) save(ctx context.Context, likes map[string]bool) error {
	data, err := json.Marshal(likes)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, StorageKey, data)
}

// MarkLiked records or forgets a like for pinID.
func (c *Cache) MarkLiked(ctx context.Context, pinID string, liked bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.markLocked(ctx, pinID, liked)
}

func (c *Cache) markLocked(ctx context.Context, pinID string, liked bool) error {
	likes := c.load(ctx)
	if liked {
		likes[pinID] = true
	} else {
		delete(likes, pinID)
	}
	return c.save(ctx, likes)
}

// IsLiked reports the local mark, false when absent.
func (c *Cache) IsLiked(ctx context.Context, pinID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)[pinID]
}

// Snapshot returns a copy of the local set.
func (c *Cache) Snapshot(ctx context.Context) map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.load(ctx))
}

// Clear removes the stored set entirely.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Delete(ctx, StorageKey)
}

// Reconcile replaces the local set with the authoritative liked pins.
func (c *Cache) Reconcile(ctx context.Context, pinIDs []string) error {
	likes := make(map[string]bool, len(pinIDs))
	for _, id := range pinIDs {
		likes[id] = true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(ctx, likes)
}

// ReconcilePins drops local marks for pins the store reports with no likes.
func (c *Cache) ReconcilePins(ctx context.Context, pins []models.Pin) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	likes := c.load(ctx)
	changed := false
	for _, p := range pins {
		if p.Likes == 0 && likes[p.ID] {
			delete(likes, p.ID)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return c.save(ctx, likes)
}

// Toggle flips the local mark before running remote, and restores the
// previous mark if remote fails.
func (c *Cache) Toggle(ctx context.Context, pinID string, liked bool, remote func(context.Context) error) error {
	c.mu.Lock()
	prev := c.load(ctx)[pinID]
	err := c.markLocked(ctx, pinID, liked)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if err := remote(ctx); err != nil {
		if restoreErr := c.MarkLiked(ctx, pinID, prev); restoreErr != nil {
			observability.GlobalLogger.WarnContext(ctx, "like cache restore failed", "pin_id", pinID, "error", restoreErr)
		}
		return err
	}
	return nil
}

// LikedPinsFunc fetches the authoritative liked pin ids of a user.
type LikedPinsFunc func(ctx context.Context, userID string) ([]string, error)

// BindSession clears the cache when the session signs out and reconciles it
// with fetch when it signs in. A failed fetch leaves local state untouched.
func (c *Cache) BindSession(s *identity.Session, fetch LikedPinsFunc) (unbind func()) {
	return s.Subscribe(func(state identity.State) {
		ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
		defer cancel()

		if !state.Authenticated() {
			if err := c.Clear(ctx); err != nil {
				observability.GlobalLogger.WarnContext(ctx, "like cache clear failed", "error", err)
			}
			return
		}
		ids, err := fetch(ctx, state.Identity.ID)
		if err != nil {
			observability.GlobalLogger.WarnContext(ctx, "like reconciliation skipped", "user_id", state.Identity.ID, "error", err)
			return
		}
		if err := c.Reconcile(ctx, ids); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "like reconciliation failed", "user_id", state.Identity.ID, "error", err)
		}
	})
}
