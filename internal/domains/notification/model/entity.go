package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	borrowingModel "library-backend/internal/domains/borrowing/model"
)

// ================================================
// NOTIFICATION ENTITY
// ================================================

// Notification is an in-app message produced from a borrowing event
type Notification struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	BookID      uuid.UUID  `json:"book_id"`
	BorrowingID uuid.UUID  `json:"borrowing_id"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	IsRead      bool       `json:"is_read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Notification types constants
const (
	TypeBorrowApproved = "borrow_approved"
	TypeBorrowRejected = "borrow_rejected"
	TypeBookReturned   = "book_returned"
	TypeBorrowReminder = "borrow_reminder"
)

var typeByEvent = map[borrowingModel.EventKind]string{
	borrowingModel.EventApproved: TypeBorrowApproved,
	borrowingModel.EventRejected: TypeBorrowRejected,
	borrowingModel.EventReturned: TypeBookReturned,
	borrowingModel.EventDueSoon:  TypeBorrowReminder,
}

// FromEvent renders the notification a user sees for a borrowing event
func FromEvent(e borrowingModel.Event) (*Notification, error) {
	notifType, ok := typeByEvent[e.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventKind, e.Kind)
	}

	n := &Notification{
		ID:          uuid.New(),
		UserID:      e.UserID,
		BookID:      e.BookID,
		BorrowingID: e.BorrowingID,
		Type:        notifType,
		CreatedAt:   e.OccurredAt,
	}

	switch e.Kind {
	case borrowingModel.EventApproved:
		n.Title = "Borrow request approved"
		n.Message = "Your borrow request has been approved. You can pick up the book now."
	case borrowingModel.EventRejected:
		n.Title = "Borrow request rejected"
		n.Message = "Your borrow request has been rejected."
		if e.Reason != nil && *e.Reason != "" {
			n.Message = fmt.Sprintf("Your borrow request has been rejected. Reason: %s", *e.Reason)
		}
	case borrowingModel.EventReturned:
		n.Title = "Book returned"
		n.Message = "Thank you for returning the book."
	case borrowingModel.EventDueSoon:
		n.Title = "Book due soon"
		n.Message = fmt.Sprintf("Please return the book by %s.", e.EndDate)
	}

	return n, nil
}
