package main

import (
	"github.com/hibiken/asynq"

	notificationJob "library-backend/internal/domains/notification/job"
	"library-backend/internal/shared"
	"library-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	borrowingEvent *notificationJob.BorrowingEventHandler
	dueReminder    *notificationJob.DueReminderHandler
}

// initializeHandlers collects the job handlers built by the container
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		borrowingEvent: c.BorrowingEventJob,
		dueReminder:    c.DueReminderJob,
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	// Notifications
	mux.HandleFunc(shared.TypeBorrowingEvent, h.borrowingEvent.ProcessTask)

	// Scheduled
	mux.HandleFunc(shared.TypeBorrowingReminder, h.dueReminder.ProcessTask)
}
