package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	borrowingModel "library-backend/internal/domains/borrowing/model"
	"library-backend/internal/domains/notification/model"
	"library-backend/internal/domains/notification/repository"
)

// ================================================
// NOTIFICATION SERVICE IMPLEMENTATION
// ================================================

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type notificationService struct {
	notifRepo repository.NotificationRepository
}

func NewNotificationService(notifRepo repository.NotificationRepository) NotificationService {
	return &notificationService{notifRepo: notifRepo}
}

func (s *notificationService) HandleBorrowingEvent(ctx context.Context, event borrowingModel.Event) error {
	n, err := model.FromEvent(event)
	if err != nil {
		return err
	}

	created, err := s.notifRepo.Create(ctx, n)
	if err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if !created {
		log.Info().
			Str("borrowing_id", event.BorrowingID.String()).
			Str("type", n.Type).
			Msg("[NotificationService] Duplicate event skipped")
		return nil
	}

	log.Info().
		Str("user_id", n.UserID.String()).
		Str("borrowing_id", n.BorrowingID.String()).
		Str("type", n.Type).
		Msg("[NotificationService] Notification created")

	return nil
}

func (s *notificationService) ListNotifications(ctx context.Context, userID uuid.UUID, page, limit int) (*model.NotificationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	list, err := s.notifRepo.ListByUserID(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	unread, err := s.notifRepo.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.NotificationListResponse{
		Notifications: list,
		Page:          page,
		Limit:         limit,
		Unread:        unread,
	}, nil
}

func (s *notificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.notifRepo.GetUnreadCount(ctx, userID)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID uuid.UUID, req model.MarkAsReadRequest) error {
	ids := make([]uuid.UUID, 0, len(req.NotificationIDs))
	for _, raw := range req.NotificationIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("%w %q: %v", model.ErrInvalidNotificationID, raw, err)
		}
		ids = append(ids, id)
	}

	return s.notifRepo.MarkAsRead(ctx, ids, userID)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.notifRepo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) DeleteNotification(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.notifRepo.Delete(ctx, notificationID, userID)
}

func (s *notificationService) DeleteAllNotifications(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.notifRepo.DeleteAll(ctx, userID)
	if err != nil {
		return 0, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Int("count", count).
		Msg("[NotificationService] Notifications cleared")

	return count, nil
}
