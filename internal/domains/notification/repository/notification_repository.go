package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"library-backend/internal/domains/notification/model"
)

// ================================================
// NOTIFICATION REPOSITORY IMPLEMENTATION
// ================================================

type notificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create inserts a notification, idempotent on (borrowing_id, type) so asynq
// retries of the same event never notify twice
func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (
			id, user_id, book_id, borrowing_id, type, title, message, is_read, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, FALSE, $8
		)
		ON CONFLICT (borrowing_id, type) DO NOTHING
	`

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}

	tag, err := r.db.Exec(ctx, query,
		n.ID, n.UserID, n.BookID, n.BorrowingID, n.Type, n.Title, n.Message, n.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListByUserID lists notifications for a user
func (r *notificationRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, error) {
	query := `
		SELECT id, user_id, book_id, borrowing_id, type, title, message, is_read, read_at, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.BookID, &n.BorrowingID, &n.Type, &n.Title, &n.Message,
			&n.IsRead, &n.ReadAt, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return notifications, nil
}

// GetUnreadCount gets unread notification count
func (r *notificationRepository) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`

	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("get unread count: %w", err)
	}

	return count, nil
}

// MarkAsRead marks notifications as read. Already read rows keep their read_at
// but still count as matched.
func (r *notificationRepository) MarkAsRead(ctx context.Context, notificationIDs []uuid.UUID, userID uuid.UUID) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = COALESCE(read_at, NOW())
		WHERE id = ANY($1::uuid[]) AND user_id = $2
	`

	ids := make([]string, 0, len(notificationIDs))
	for _, id := range notificationIDs {
		ids = append(ids, id.String())
	}

	result, err := r.db.Exec(ctx, query, pq.Array(ids), userID)
	if err != nil {
		return fmt.Errorf("mark as read: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrNotificationNotFound
	}

	return nil
}

// MarkAllAsRead marks all user's notifications as read
func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = NOW()
		WHERE user_id = $1 AND is_read = FALSE
	`

	result, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all as read: %w", err)
	}

	return int(result.RowsAffected()), nil
}

// Delete removes one of the user's notifications
func (r *notificationRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM notifications WHERE id = $1 AND user_id = $2`

	result, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrNotificationNotFound
	}

	return nil
}

func (r *notificationRepository) DeleteAll(ctx context.Context, userID uuid.UUID) (int, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete all notifications: %w", err)
	}

	return int(result.RowsAffected()), nil
}
