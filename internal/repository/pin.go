package repository

import (
	"context"

	"creaza/internal/cache"
	"creaza/internal/docstore"
	"creaza/internal/models"
)

// PinRepository defines persistence operations for pins.
type PinRepository interface {
	Create(ctx context.Context, pin *models.Pin) error
	GetByID(ctx context.Context, id string) *models.Pin
	// List returns up to limit pins, newest first.
	List(ctx context.Context, limit int) []models.Pin
	ListByUser(ctx context.Context, userID string, limit int) []models.Pin
	// Scan returns up to limit pins in store order for client-side filtering.
	Scan(ctx context.Context, limit int) []models.Pin
	// Newest and TopByLikes surface read failures so callers can choose a fallback.
	Newest(ctx context.Context, limit int) ([]models.Pin, error)
	TopByLikes(ctx context.Context, limit int) ([]models.Pin, error)
	// AdjustLikes atomically adds delta to the like counter, never below zero.
	AdjustLikes(ctx context.Context, id string, delta int) error
	All(ctx context.Context) []models.Pin
}

type pinRepository struct {
	docRepo[models.Pin]
}

// NewPinRepository returns a new PinRepository implementation.
func NewPinRepository(store docstore.Store) PinRepository {
	return &pinRepository{newDocRepo(store, docstore.Pins, pinCreatedAt)}
}

func (r *pinRepository) Create(ctx context.Context, pin *models.Pin) error {
	return r.insert(ctx, pin.ID, pin)
}

func (r *pinRepository) GetByID(ctx context.Context, id string) *models.Pin {
	var pin models.Pin
	found, err := cache.CacheAside(ctx, cache.PinKey(id), &pin, cache.PinTTL, func() (bool, error) {
		doc, err := r.lookup(ctx, id)
		if err != nil || doc == nil {
			return false, err
		}
		pin = *doc
		return true, nil
	})
	if err != nil {
		r.log.LogDegraded(ctx, err, "get_by_id")
		return nil
	}
	if !found {
		return nil
	}
	return &pin
}

func (r *pinRepository) List(ctx context.Context, limit int) []models.Pin {
	pins, err := r.Newest(ctx, limit)
	if err != nil {
		r.log.LogDegraded(ctx, err, "list")
		return []models.Pin{}
	}
	return pins
}

func (r *pinRepository) ListByUser(ctx context.Context, userID string, limit int) []models.Pin {
	return r.find(ctx, docstore.Query{
		Collection: r.coll,
		Where:      []docstore.Filter{docstore.Eq("user_id", userID)},
		OrderBy:    "created_at",
		Desc:       true,
		Limit:      limit,
	}, "list_by_user")
}

func (r *pinRepository) Scan(ctx context.Context, limit int) []models.Pin {
	return r.find(ctx, docstore.Query{Collection: r.coll, Limit: limit}, "scan")
}

func (r *pinRepository) Newest(ctx context.Context, limit int) ([]models.Pin, error) {
	return r.query(ctx, docstore.Query{Collection: r.coll, OrderBy: "created_at", Desc: true, Limit: limit}, "newest")
}

func (r *pinRepository) TopByLikes(ctx context.Context, limit int) ([]models.Pin, error) {
	return r.query(ctx, docstore.Query{Collection: r.coll, OrderBy: "likes", Desc: true, Limit: limit}, "top_by_likes")
}

func (r *pinRepository) AdjustLikes(ctx context.Context, id string, delta int) error {
	if err := r.store.Increment(ctx, r.coll, id, "likes", delta); err != nil {
		r.log.LogError(ctx, err, "adjust_likes")
		return writeError(err, "Pin", id)
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"id": id, "likes_delta": delta})
	cache.InvalidatePin(ctx, id)
	return nil
}

func (r *pinRepository) All(ctx context.Context) []models.Pin {
	return r.all(ctx)
}
