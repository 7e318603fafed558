package service

import (
	"context"

	"github.com/google/uuid"

	borrowingModel "library-backend/internal/domains/borrowing/model"
	"library-backend/internal/domains/notification/model"
)

// ================================================
// NOTIFICATION SERVICE INTERFACE
// ================================================

type NotificationService interface {
	// HandleBorrowingEvent stores the in-app notification for a borrowing event.
	// Replays of an already handled event are no-ops.
	HandleBorrowingEvent(ctx context.Context, event borrowingModel.Event) error

	ListNotifications(ctx context.Context, userID uuid.UUID, page, limit int) (*model.NotificationListResponse, error)
	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error)

	// MarkAsRead wraps model.ErrInvalidNotificationID for unparsable ids
	MarkAsRead(ctx context.Context, userID uuid.UUID, req model.MarkAsReadRequest) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int, error)

	DeleteNotification(ctx context.Context, userID, notificationID uuid.UUID) error
	DeleteAllNotifications(ctx context.Context, userID uuid.UUID) (int, error)
}
