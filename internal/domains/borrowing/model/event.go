package model

import (
	"time"

	"github.com/google/uuid"
)

// EventKind names a lifecycle signal sent to the notification collaborator
type EventKind string

const (
	EventApproved EventKind = "approved"
	EventRejected EventKind = "rejected"
	EventReturned EventKind = "returned"
	EventDueSoon  EventKind = "due_soon" // emitted by the reminder job, not by a transition
)

// Event is fire-and-forget. Losing one never undoes the transition that produced it.
type Event struct {
	Kind        EventKind `json:"kind"`
	BorrowingID uuid.UUID `json:"borrowing_id"`
	UserID      uuid.UUID `json:"user_id"`
	BookID      uuid.UUID `json:"book_id"`
	Reason      *string   `json:"reason,omitempty"`
	EndDate     string    `json:"end_date,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func NewEvent(kind EventKind, b *Borrowing, now time.Time) Event {
	return Event{
		Kind:        kind,
		BorrowingID: b.ID,
		UserID:      b.UserID,
		BookID:      b.BookID,
		EndDate:     b.Interval.EndDate.Format(DateLayout),
		OccurredAt:  now,
	}
}
