package shared

// Asynq task types
const (
	TypeBorrowingEvent    = "borrowing:event"
	TypeBorrowingReminder = "borrowing:due_reminder"
)

// Asynq queues
const (
	QueueNotifications = "notifications"
	QueueScheduled     = "scheduled"
)

// Context keys set by the auth middleware
const (
	ContextUserID = "user_id"
	ContextRole   = "user_role"
)

const RoleAdmin = "admin"
