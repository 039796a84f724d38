package repository

import (
	"context"
	"time"

	"creaza/internal/docstore"
	"creaza/internal/models"
)

// PinLikeRepository records which user liked which pin.
type PinLikeRepository interface {
	Mark(ctx context.Context, userID, pinID string) error
	Unmark(ctx context.Context, userID, pinID string) error
	Has(ctx context.Context, userID, pinID string) bool
	// PinIDsForUser surfaces read failures so a caller never replaces
	// local state with an empty set by mistake.
	PinIDsForUser(ctx context.Context, userID string) ([]string, error)
}

type pinLikeRepository struct {
	docRepo[models.PinLike]
	now func() time.Time
}

// NewPinLikeRepository creates a new PinLikeRepository.
func NewPinLikeRepository(store docstore.Store) PinLikeRepository {
	return &pinLikeRepository{docRepo: newDocRepo(store, docstore.PinLikes, pinLikeCreatedAt), now: time.Now}
}

func (r *pinLikeRepository) Mark(ctx context.Context, userID, pinID string) error {
	l := &models.PinLike{
		ID:        models.PinLikeID(userID, pinID),
		UserID:    userID,
		PinID:     pinID,
		CreatedAt: r.now().UTC(),
	}
	return r.put(ctx, l.ID, l)
}

func (r *pinLikeRepository) Unmark(ctx context.Context, userID, pinID string) error {
	return r.delete(ctx, models.PinLikeID(userID, pinID))
}

func (r *pinLikeRepository) Has(ctx context.Context, userID, pinID string) bool {
	return r.get(ctx, models.PinLikeID(userID, pinID), "has") != nil
}

func (r *pinLikeRepository) PinIDsForUser(ctx context.Context, userID string) ([]string, error) {
	likes, err := r.query(ctx, docstore.Query{
		Collection: r.coll,
		Where:      []docstore.Filter{docstore.Eq("user_id", userID)},
	}, "pin_ids_for_user")
	if err != nil {
		r.log.LogError(ctx, err, "pin_ids_for_user")
		return nil, err
	}
	ids := make([]string, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.PinID)
	}
	return ids, nil
}
