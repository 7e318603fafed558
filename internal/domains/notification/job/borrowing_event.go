package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"library-backend/internal/domains/borrowing/event"
	"library-backend/internal/domains/notification/model"
	"library-backend/internal/domains/notification/service"
	"library-backend/pkg/logger"
)

// ================================================
// BORROWING EVENT JOB HANDLER
// ================================================

// BorrowingEventHandler turns borrowing:event tasks into in-app notifications
type BorrowingEventHandler struct {
	notificationService service.NotificationService
}

func NewBorrowingEventHandler(notificationService service.NotificationService) *BorrowingEventHandler {
	return &BorrowingEventHandler{notificationService: notificationService}
}

// ProcessTask returns an error only for conditions a retry can fix.
// Malformed payloads and unknown kinds are skipped with asynq.SkipRetry.
func (h *BorrowingEventHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	e, err := event.Unmarshal(t.Payload())
	if err != nil {
		logger.Error("Failed to unmarshal borrowing event", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if err := h.notificationService.HandleBorrowingEvent(ctx, e); err != nil {
		if errors.Is(err, model.ErrUnknownEventKind) {
			logger.Error("Unknown borrowing event kind", err)
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return fmt.Errorf("handle borrowing event: %w", err)
	}

	return nil
}
