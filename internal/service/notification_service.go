package service

import (
	"context"

	"creaza/internal/models"
	"creaza/internal/repository"
)

// DefaultNotificationWindow is how many recent notifications a list returns.
const DefaultNotificationWindow = 50

type NotificationService struct {
	notifications repository.NotificationRepository
}

func NewNotificationService(repos *repository.Repositories) *NotificationService {
	return &NotificationService{notifications: repos.Notifications}
}

func (s *NotificationService) ListUserNotifications(ctx context.Context, userID string, limit int) []models.Notification {
	if limit <= 0 {
		limit = DefaultNotificationWindow
	}
	return s.notifications.ListForUser(ctx, userID, limit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) int64 {
	return s.notifications.UnreadCount(ctx, userID)
}

// MarkRead marks one of userID's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	n := s.notifications.GetByID(ctx, id)
	if n == nil || n.UserID != userID {
		return models.NewNotFoundError("Notification", id)
	}
	if n.Read {
		return nil
	}
	return s.notifications.MarkRead(ctx, id)
}

// MarkAllRead marks every notification of userID that is unread now in one
// batch and returns how many were updated. A failed lookup is an error, not
// an empty batch.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	ids, err := s.notifications.UnreadIDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.notifications.MarkManyRead(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}
