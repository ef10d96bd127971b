package repository

import (
	"context"

	"medride/internal/domain"
)

// NotificationRepository defines the persistence operations for notifications.
type NotificationRepository interface {
	// Create persists a new notification.
	Create(ctx context.Context, n *domain.Notification) error

	// ListByUser retrieves a user's notifications, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error)

	// MarkRead flags a notification as read. Only the recipient's notifications match.
	MarkRead(ctx context.Context, id, userID string) error

	// CountUnread returns the number of unread notifications of a user.
	CountUnread(ctx context.Context, userID string) (int, error)
}
