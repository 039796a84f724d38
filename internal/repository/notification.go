package repository

import (
	"context"

	"creaza/internal/docstore"
	"creaza/internal/models"
)

// NotificationRepository defines persistence operations for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n models.Notification) error
	GetByID(ctx context.Context, id string) *models.Notification
	// ListForUser returns the recipient's newest notifications. Records
	// that do not decode to a known variant are skipped.
	ListForUser(ctx context.Context, userID string, limit int) []models.Notification
	// UnreadIDs lists every unread notification of userID, beyond any
	// window. Read failures are returned, not degraded.
	UnreadIDs(ctx context.Context, userID string) ([]string, error)
	UnreadCount(ctx context.Context, userID string) int64
	MarkRead(ctx context.Context, id string) error
	MarkManyRead(ctx context.Context, ids []string) error
	All(ctx context.Context) []models.Notification
}

type notificationRepository struct {
	docRepo[models.NotificationRecord]
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(store docstore.Store) NotificationRepository {
	return &notificationRepository{newDocRepo(store, docstore.Notifications, notificationCreatedAt)}
}

func (r *notificationRepository) Create(ctx context.Context, n models.Notification) error {
	rec := n.Record()
	return r.insert(ctx, rec.ID, &rec)
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) *models.Notification {
	rec := r.get(ctx, id, "get_by_id")
	if rec == nil {
		return nil
	}
	n, err := rec.Notification()
	if err != nil {
		r.log.LogDegraded(ctx, err, "get_by_id")
		return nil
	}
	return &n
}

func (r *notificationRepository) decode(ctx context.Context, recs []models.NotificationRecord, op string) []models.Notification {
	out := make([]models.Notification, 0, len(recs))
	for _, rec := range recs {
		n, err := rec.Notification()
		if err != nil {
			r.log.LogDegraded(ctx, err, op)
			continue
		}
		out = append(out, n)
	}
	return out
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID string, limit int) []models.Notification {
	recs := r.find(ctx, docstore.Query{
		Collection: r.coll,
		Where:      []docstore.Filter{docstore.Eq("user_id", userID)},
		OrderBy:    "created_at",
		Desc:       true,
		Limit:      limit,
	}, "list_for_user")
	return r.decode(ctx, recs, "list_for_user")
}

func (r *notificationRepository) UnreadIDs(ctx context.Context, userID string) ([]string, error) {
	recs, err := r.query(ctx, docstore.Query{
		Collection: r.coll,
		Where:      []docstore.Filter{docstore.Eq("user_id", userID), docstore.Eq("read", false)},
	}, "unread_ids")
	if err != nil {
		r.log.LogError(ctx, err, "unread_ids")
		return nil, models.NewInternalError(err)
	}
	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID string) int64 {
	return r.count(ctx, "unread_count", docstore.Eq("user_id", userID), docstore.Eq("read", false))
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]any{"read": true})
}

func (r *notificationRepository) MarkManyRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.store.BatchUpdate(ctx, r.coll, ids, map[string]any{"read": true}); err != nil {
		r.log.LogError(ctx, err, "mark_many_read")
		return writeError(err, "Notification", "batch")
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"ids": len(ids), "read": true})
	return nil
}

func (r *notificationRepository) All(ctx context.Context) []models.Notification {
	return r.decode(ctx, r.all(ctx), "all")
}
