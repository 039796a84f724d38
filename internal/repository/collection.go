package repository

import (
	"context"

	"creaza/internal/docstore"
	"creaza/internal/models"

	"gorm.io/datatypes"
)

// CollectionRepository defines persistence operations for collections.
type CollectionRepository interface {
	Create(ctx context.Context, c *models.Collection) error
	// Lookup distinguishes a missing collection (nil, nil) from a failed read.
	Lookup(ctx context.Context, id string) (*models.Collection, error)
	GetByID(ctx context.Context, id string) *models.Collection
	// ListByUser returns the owner's collections, newest first.
	ListByUser(ctx context.Context, userID string) []models.Collection
	// SetPins replaces the member list if the stored version still equals
	// version; otherwise it returns a CONFLICT error wrapping docstore.ErrConflict.
	SetPins(ctx context.Context, id string, version int64, pinIDs []string) error
	Delete(ctx context.Context, id string) error
	All(ctx context.Context) []models.Collection
}

type collectionRepository struct {
	docRepo[models.Collection]
}

// NewCollectionRepository creates a new CollectionRepository.
func NewCollectionRepository(store docstore.Store) CollectionRepository {
	return &collectionRepository{newDocRepo(store, docstore.Collections, collectionCreatedAt)}
}

func (r *collectionRepository) Create(ctx context.Context, c *models.Collection) error {
	return r.insert(ctx, c.ID, c)
}

func (r *collectionRepository) Lookup(ctx context.Context, id string) (*models.Collection, error) {
	return r.lookup(ctx, id)
}

func (r *collectionRepository) GetByID(ctx context.Context, id string) *models.Collection {
	return r.get(ctx, id, "get_by_id")
}

func (r *collectionRepository) ListByUser(ctx context.Context, userID string) []models.Collection {
	return r.find(ctx, docstore.Query{
		Collection: r.coll,
		Where:      []docstore.Filter{docstore.Eq("user_id", userID)},
		OrderBy:    "created_at",
		Desc:       true,
	}, "list_by_user")
}

func (r *collectionRepository) SetPins(ctx context.Context, id string, version int64, pinIDs []string) error {
	if pinIDs == nil {
		pinIDs = []string{}
	}
	fields := map[string]any{"pin_ids": datatypes.JSONSlice[string](pinIDs)}
	if err := r.store.UpdateVersioned(ctx, r.coll, id, version, fields); err != nil {
		r.log.LogError(ctx, err, "set_pins")
		return writeError(err, "Collection", id)
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"id": id, "version": version + 1, "pins": len(pinIDs)})
	return nil
}

func (r *collectionRepository) Delete(ctx context.Context, id string) error {
	return r.delete(ctx, id)
}

func (r *collectionRepository) All(ctx context.Context) []models.Collection {
	return r.all(ctx)
}
