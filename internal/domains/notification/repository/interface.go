package repository

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/notification/model"
)

// ================================================
// NOTIFICATION REPOSITORY INTERFACE
// ================================================

type NotificationRepository interface {
	// Create inserts n. A second notification of the same type for the same
	// borrowing is dropped and created = false is returned.
	Create(ctx context.Context, n *model.Notification) (created bool, err error)

	// ListByUserID returns the user's notifications, newest first
	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, error)

	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error)

	// MarkAsRead returns model.ErrNotificationNotFound when no id belongs to the user.
	// Re-marking a read notification succeeds.
	MarkAsRead(ctx context.Context, notificationIDs []uuid.UUID, userID uuid.UUID) error

	// MarkAllAsRead returns how many unread notifications were marked
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int, error)

	// Delete returns model.ErrNotificationNotFound when id is not the user's
	Delete(ctx context.Context, id, userID uuid.UUID) error

	DeleteAll(ctx context.Context, userID uuid.UUID) (int, error)
}
