package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	borrowingModel "library-backend/internal/domains/borrowing/model"
	borrowingService "library-backend/internal/domains/borrowing/service"
	"library-backend/pkg/logger"
)

// ================================================
// DUE REMINDER JOB HANDLER
// ================================================

// DueReminderHandler emits a due_soon event for every loan ending tomorrow.
// Scheduled once a day; notification storage dedupes repeated runs.
type DueReminderHandler struct {
	borrowings borrowingService.ServiceInterface
	emitter    borrowingService.Emitter
	clock      borrowingService.Clock
}

func NewDueReminderHandler(
	borrowings borrowingService.ServiceInterface,
	emitter borrowingService.Emitter,
	clock borrowingService.Clock,
) *DueReminderHandler {
	return &DueReminderHandler{
		borrowings: borrowings,
		emitter:    emitter,
		clock:      clock,
	}
}

func (h *DueReminderHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	tomorrow := borrowingModel.NextDay(h.clock.Today())

	due, err := h.borrowings.DueOn(ctx, tomorrow)
	if err != nil {
		return fmt.Errorf("load due borrowings: %w", err)
	}

	logger.Info("Starting DueReminder job", map[string]interface{}{
		"due_date": tomorrow.Format(borrowingModel.DateLayout),
		"count":    len(due),
	})

	failed := 0
	for _, b := range due {
		e := borrowingModel.NewEvent(borrowingModel.EventDueSoon, b, h.clock.Now())
		if err := h.emitter.Emit(ctx, e); err != nil {
			failed++
			logger.ErrorWithFields("Failed to emit due reminder", err, map[string]interface{}{
				"borrowing_id": b.ID.String(),
			})
		}
	}

	logger.Info("Completed DueReminder job", map[string]interface{}{
		"sent":   len(due) - failed,
		"failed": failed,
	})

	if failed > 0 {
		return fmt.Errorf("%d of %d due reminders failed", failed, len(due))
	}
	return nil
}
