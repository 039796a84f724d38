package notifications

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"creaza/internal/models"
	"creaza/internal/observability"
	"creaza/internal/repository"

	"golang.org/x/sync/errgroup"
)

// FeedConfig controls polling cadence and resolution.
type FeedConfig struct {
	OpenInterval   time.Duration
	ClosedInterval time.Duration
	Window         int
	Concurrency    int
}

// DefaultFeedConfig polls every 15s while the panel is open and every
// minute while it is closed.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		OpenInterval:   15 * time.Second,
		ClosedInterval: time.Minute,
		Window:         50,
		Concurrency:    8,
	}
}

func (c FeedConfig) withDefaults() FeedConfig {
	d := DefaultFeedConfig()
	if c.OpenInterval <= 0 {
		c.OpenInterval = d.OpenInterval
	}
	if c.ClosedInterval <= 0 {
		c.ClosedInterval = d.ClosedInterval
	}
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	return c
}

// FeedItem is a notification together with what the panel shows for it.
type FeedItem struct {
	models.Notification
	Message string       `json:"message"`
	Pin     *models.Pin  `json:"pin,omitempty"`
	Actor   *models.User `json:"actor,omitempty"`
}

// MarshalJSON inlines the notification's wire fields next to the rendered
// ones. Without it the embedded Notification's marshaller would win.
func (it FeedItem) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(it.Notification)
	if err != nil {
		return nil, err
	}
	extra, err := json.Marshal(struct {
		Message string       `json:"message"`
		Pin     *models.Pin  `json:"pin,omitempty"`
		Actor   *models.User `json:"actor,omitempty"`
	}{it.Message, it.Pin, it.Actor})
	if err != nil {
		return nil, err
	}
	// Both are non-empty objects: drop base's closing brace and extra's opening one.
	out := append(base[:len(base)-1:len(base)-1], ',')
	return append(out, extra[1:]...), nil
}

// Snapshot is a copy of the controller state.
type Snapshot struct {
	Items     []FeedItem             `json:"items"`
	Unread    int                    `json:"unread"`
	Badge     string                 `json:"badge"`
	PanelOpen bool                   `json:"panel_open"`
	Pins      map[string]models.Pin  `json:"pins"`
	Users     map[string]models.User `json:"users"`
	PolledAt  time.Time              `json:"polled_at"`
}

// FeedController keeps one user's notification window and unread count
// fresh. It polls on a cadence that depends on whether the panel is open.
type FeedController struct {
	userID        string
	notifications repository.NotificationRepository
	pins          repository.PinRepository
	users         repository.UserRepository
	cfg           FeedConfig
	log           *observability.ServiceLogger
	now           func() time.Time

	mu       sync.Mutex
	items    []models.Notification
	unread   int
	open     bool
	pinByID  map[string]models.Pin
	userByID map[string]models.User
	polledAt time.Time
	// version is bumped by every commit, local mutation and Stop; a poll
	// commits only if the version it started from is still current.
	version uint64

	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

// NewFeedController creates an idle controller for userID.
func NewFeedController(userID string, repos *repository.Repositories, cfg FeedConfig) *FeedController {
	return &FeedController{
		userID:        userID,
		notifications: repos.Notifications,
		pins:          repos.Pins,
		users:         repos.Users,
		cfg:           cfg.withDefaults(),
		log:           observability.NewServiceLogger("FeedController"),
		now:           time.Now,
		pinByID:       map[string]models.Pin{},
		userByID:      map[string]models.User{},
		wake:          make(chan struct{}, 1),
	}
}

// UserID returns the recipient this feed belongs to.
func (f *FeedController) UserID() string { return f.userID }

// Start begins polling. It polls once immediately. Calling Start on a
// running controller does nothing.
func (f *FeedController) Start(ctx context.Context) {
	f.mu.Lock()
	if f.cancel != nil {
		f.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	f.cancel = cancel
	f.done = done
	f.mu.Unlock()

	go func() {
		defer close(done)
		Schedule(ctx, f.interval, f.wake, func(ctx context.Context) {
			_ = f.Poll(ctx)
		})
	}()
}

// Stop cancels polling and waits for the loop to exit. A poll in flight
// does not commit.
func (f *FeedController) Stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.version++
	f.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the polling loop is active.
func (f *FeedController) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancel != nil
}

// SetPanelOpen switches cadence. Opening or closing the panel triggers an
// immediate poll.
func (f *FeedController) SetPanelOpen(open bool) {
	f.mu.Lock()
	changed := f.open != open
	f.open = open
	f.mu.Unlock()
	if changed {
		f.Nudge()
	}
}

// Nudge asks the polling loop to poll now. It never blocks.
func (f *FeedController) Nudge() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *FeedController) interval() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.open {
		return f.cfg.OpenInterval
	}
	return f.cfg.ClosedInterval
}

// Poll fetches the latest window and unread count. While the panel is
// open it also resolves the referenced pins and actors. Results are
// discarded when ctx is cancelled or the state changed meanwhile.
func (f *FeedController) Poll(ctx context.Context) error {
	f.mu.Lock()
	start, open := f.version, f.open
	f.mu.Unlock()

	panel := "closed"
	if open {
		panel = "open"
	}

	items := f.notifications.ListForUser(ctx, f.userID, f.cfg.Window)
	unread := int(f.notifications.UnreadCount(ctx, f.userID))

	var pins map[string]models.Pin
	var users map[string]models.User
	if open {
		pins, users = f.resolve(ctx, items)
	}

	if err := ctx.Err(); err != nil {
		observability.FeedPolls.WithLabelValues(panel, "cancelled").Inc()
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.version != start {
		observability.FeedPolls.WithLabelValues(panel, "stale").Inc()
		return nil
	}
	f.items = items
	f.unread = unread
	if open {
		f.pinByID = pins
		f.userByID = users
	}
	f.polledAt = f.now()
	f.version++
	observability.FeedPolls.WithLabelValues(panel, "ok").Inc()
	return nil
}

func (f *FeedController) resolve(ctx context.Context, items []models.Notification) (map[string]models.Pin, map[string]models.User) {
	pinIDs := map[string]struct{}{}
	userIDs := map[string]struct{}{}
	for _, n := range items {
		if id := pinIDOf(n); id != "" {
			pinIDs[id] = struct{}{}
		}
		if n.FromUserID != "" {
			userIDs[n.FromUserID] = struct{}{}
		}
	}

	var mu sync.Mutex
	pins := make(map[string]models.Pin, len(pinIDs))
	users := make(map[string]models.User, len(userIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Concurrency)
	for id := range pinIDs {
		g.Go(func() error {
			if p := f.pins.GetByID(gctx, id); p != nil {
				mu.Lock()
				pins[id] = *p
				mu.Unlock()
			}
			return nil
		})
	}
	for id := range userIDs {
		g.Go(func() error {
			if u := f.users.GetByID(gctx, id); u != nil {
				mu.Lock()
				users[id] = *u
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return pins, users
}

// MarkRead flips the notification locally and then persists it. Ids
// outside the current window are checked for ownership first.
func (f *FeedController) MarkRead(ctx context.Context, id string) error {
	f.mu.Lock()
	found := false
	for i := range f.items {
		if f.items[i].ID != id {
			continue
		}
		found = true
		if !f.items[i].Read {
			f.items[i].Read = true
			f.unread = max(0, f.unread-1)
			f.version++
		}
		break
	}
	f.mu.Unlock()

	if !found {
		n := f.notifications.GetByID(ctx, id)
		if n == nil || n.UserID != f.userID {
			return models.NewNotFoundError("Notification", id)
		}
	}
	if err := f.notifications.MarkRead(ctx, id); err != nil {
		f.log.LogDrift(ctx, "MarkRead", err, map[string]interface{}{"notification_id": id})
		return err
	}
	return nil
}

// MarkAllRead flips every item locally and zeroes the unread count, then
// persists every notification the user has unread in the store, inside the
// window or not, in one batch.
func (f *FeedController) MarkAllRead(ctx context.Context) error {
	f.mu.Lock()
	local := make(map[string]struct{})
	for i := range f.items {
		if !f.items[i].Read {
			f.items[i].Read = true
			local[f.items[i].ID] = struct{}{}
		}
	}
	f.unread = 0
	f.version++
	f.mu.Unlock()

	ids, err := f.notifications.UnreadIDs(ctx, f.userID)
	if err != nil {
		f.log.LogDrift(ctx, "MarkAllRead", err, map[string]any{"local": len(local)})
		return err
	}
	for _, id := range ids {
		delete(local, id)
	}
	for id := range local {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := f.notifications.MarkManyRead(ctx, ids); err != nil {
		f.log.LogDrift(ctx, "MarkAllRead", err, map[string]any{"count": len(ids)})
		return err
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (f *FeedController) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Snapshot{
		Items:     make([]FeedItem, 0, len(f.items)),
		Unread:    f.unread,
		Badge:     Badge(f.unread),
		PanelOpen: f.open,
		Pins:      make(map[string]models.Pin, len(f.pinByID)),
		Users:     make(map[string]models.User, len(f.userByID)),
		PolledAt:  f.polledAt,
	}
	for id, p := range f.pinByID {
		s.Pins[id] = p
	}
	for id, u := range f.userByID {
		s.Users[id] = u
	}
	for _, n := range f.items {
		item := FeedItem{Notification: n}
		if u, ok := f.userByID[n.FromUserID]; ok {
			item.Actor = &u
		}
		if p, ok := f.pinByID[pinIDOf(n)]; ok {
			item.Pin = &p
		}
		item.Message = Message(n, item.Actor)
		s.Items = append(s.Items, item)
	}
	return s
}

// Badge renders the unread indicator: empty for zero, "9+" above nine.
func Badge(unread int) string {
	switch {
	case unread <= 0:
		return ""
	case unread > 9:
		return "9+"
	default:
		return strconv.Itoa(unread)
	}
}

// Message renders the text shown for a notification.
func Message(n models.Notification, actor *models.User) string {
	name := "Someone"
	if actor != nil {
		if actor.DisplayName != "" {
			name = actor.DisplayName
		} else if actor.Username != "" {
			name = actor.Username
		}
	}
	switch n.Type() {
	case models.NotificationLike:
		return name + " liked your pin"
	case models.NotificationComment:
		return name + " commented on your pin"
	case models.NotificationFollow:
		return name + " started following you"
	case models.NotificationMention:
		return name + " mentioned you"
	default:
		return "New notification"
	}
}

func pinIDOf(n models.Notification) string {
	id, _ := n.PinID()
	return id
}
