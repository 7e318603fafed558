package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"library-backend/internal/domains/notification/model"
)

// MemoryRepository is the in-process NotificationRepository used by tests
type MemoryRepository struct {
	mu            sync.Mutex
	notifications []model.Notification
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(_ context.Context, n *model.Notification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.notifications {
		if existing.BorrowingID == n.BorrowingID && existing.Type == n.Type {
			return false, nil
		}
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.notifications = append(r.notifications, *n)
	return true, nil
}

func (r *MemoryRepository) ListByUserID(_ context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := []model.Notification{}
	for _, n := range r.notifications {
		if n.UserID == userID {
			list = append(list, n)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	if offset >= len(list) {
		return []model.Notification{}, nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end], nil
}

func (r *MemoryRepository) GetUnreadCount(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, n := range r.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) MarkAsRead(_ context.Context, notificationIDs []uuid.UUID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[uuid.UUID]bool, len(notificationIDs))
	for _, id := range notificationIDs {
		wanted[id] = true
	}

	now := time.Now()
	matched := 0
	for i := range r.notifications {
		n := &r.notifications[i]
		if !wanted[n.ID] || n.UserID != userID {
			continue
		}
		matched++
		if !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
		}
	}
	if matched == 0 {
		return model.ErrNotificationNotFound
	}
	return nil
}

func (r *MemoryRepository) MarkAllAsRead(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	changed := 0
	for i := range r.notifications {
		n := &r.notifications[i]
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
			changed++
		}
	}
	return changed, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, n := range r.notifications {
		if n.ID == id && n.UserID == userID {
			r.notifications = append(r.notifications[:i], r.notifications[i+1:]...)
			return nil
		}
	}
	return model.ErrNotificationNotFound
}

func (r *MemoryRepository) DeleteAll(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.notifications[:0]
	removed := 0
	for _, n := range r.notifications {
		if n.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	r.notifications = kept
	return removed, nil
}
