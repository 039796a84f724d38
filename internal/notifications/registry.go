package notifications

import (
	"context"
	"sync"
	"time"

	"creaza/internal/observability"
)

// FeedFactory builds an idle controller for a user.
type FeedFactory func(userID string) *FeedController

type registeredFeed struct {
	feed     *FeedController
	lastSeen time.Time
}

// Registry owns the running feed controllers of a server process, one per
// user, and routes pub/sub nudges to them.
type Registry struct {
	ctx     context.Context
	factory FeedFactory
	now     func() time.Time

	mu    sync.Mutex
	feeds map[string]*registeredFeed
}

// NewRegistry creates a registry whose controllers poll until ctx is done
// or they are evicted.
func NewRegistry(ctx context.Context, factory FeedFactory) *Registry {
	return &Registry{
		ctx:     ctx,
		factory: factory,
		now:     time.Now,
		feeds:   make(map[string]*registeredFeed),
	}
}

// Acquire returns the user's controller, starting one if needed.
func (r *Registry) Acquire(userID string) *FeedController {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rf, ok := r.feeds[userID]; ok {
		rf.lastSeen = r.now()
		return rf.feed
	}
	feed := r.factory(userID)
	feed.Start(r.ctx)
	r.feeds[userID] = &registeredFeed{feed: feed, lastSeen: r.now()}
	observability.GlobalLogger.Debug("feed started", "user_id", userID)
	return feed
}

// Get returns the user's controller if one is running, without counting as
// activity.
func (r *Registry) Get(userID string) (*FeedController, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rf, ok := r.feeds[userID]
	if !ok {
		return nil, false
	}
	return rf.feed, true
}

// Touch is Get for user activity: it also refreshes the controller's idle
// clock so Evict keeps it.
func (r *Registry) Touch(userID string) (*FeedController, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rf, ok := r.feeds[userID]
	if !ok {
		return nil, false
	}
	rf.lastSeen = r.now()
	return rf.feed, true
}

// Release stops and forgets the user's controller.
func (r *Registry) Release(userID string) {
	r.mu.Lock()
	rf, ok := r.feeds[userID]
	delete(r.feeds, userID)
	r.mu.Unlock()
	if ok {
		rf.feed.Stop()
	}
}

// Nudge makes the user's controller poll now. Users without a running
// controller are ignored.
func (r *Registry) Nudge(userID string) {
	if feed, ok := r.Get(userID); ok {
		feed.Nudge()
	}
}

// Len returns the number of running controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.feeds)
}

// Evict stops controllers not acquired or touched within idle.
func (r *Registry) Evict(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	var stale []*FeedController

	r.mu.Lock()
	for id, rf := range r.feeds {
		if rf.lastSeen.Before(cutoff) {
			stale = append(stale, rf.feed)
			delete(r.feeds, id)
		}
	}
	r.mu.Unlock()

	for _, feed := range stale {
		feed.Stop()
	}
	return len(stale)
}

// StartWiring routes notification publishes to running controllers and
// evicts idle ones every idle period.
func (r *Registry) StartWiring(ctx context.Context, n *Notifier, idle time.Duration) error {
	if err := n.StartUserSubscriber(ctx, func(userID, _ string) {
		r.Nudge(userID)
	}); err != nil {
		return err
	}
	if idle > 0 {
		go Schedule(ctx, func() time.Duration { return idle }, nil, func(context.Context) {
			if evicted := r.Evict(idle); evicted > 0 {
				observability.GlobalLogger.Info("evicted idle feeds", "count", evicted)
			}
		})
	}
	return nil
}

// Shutdown stops every controller.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	feeds := r.feeds
	r.feeds = make(map[string]*registeredFeed)
	r.mu.Unlock()

	for _, rf := range feeds {
		rf.feed.Stop()
	}
}
