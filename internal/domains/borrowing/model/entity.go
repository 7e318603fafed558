package model

import (
	"time"

	"github.com/google/uuid"
)

// =====================================================
// BORROWING STATUS
// =====================================================

type Status string

const (
	StatusPending   Status = "pending"   // Requested, waiting for admin decision
	StatusBorrowed  Status = "borrowed"  // Approved, copy handed out
	StatusReturned  Status = "returned"  // Copy back on the shelf
	StatusCancelled Status = "cancelled" // Withdrawn by user or rejected by admin
)

// ActiveStatuses are the statuses that consume booking capacity
var ActiveStatuses = []Status{StatusPending, StatusBorrowed}

// transitions is the complete state machine. Anything not listed is illegal.
var transitions = map[Status][]Status{
	StatusPending:  {StatusBorrowed, StatusCancelled},
	StatusBorrowed: {StatusReturned},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusBorrowed, StatusReturned, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether a record in this status counts against capacity
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusBorrowed
}

func (s Status) IsTerminal() bool {
	return s == StatusReturned || s == StatusCancelled
}

// CanTransitionTo checks the move against the transition table
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// =====================================================
// BORROWING ENTITY
// =====================================================

// Borrowing is one user's hold on one copy of a book for a date interval
type Borrowing struct {
	ID       uuid.UUID `json:"id"`
	BookID   uuid.UUID `json:"book_id"`
	UserID   uuid.UUID `json:"user_id"`
	Interval Interval  `json:"interval"`

	Status    Status  `json:"status"`
	AdminNote *string `json:"admin_note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBorrowing builds a pending record. Date validation happens in the service.
func NewBorrowing(userID, bookID uuid.UUID, interval Interval, now time.Time) *Borrowing {
	return &Borrowing{
		ID:        uuid.New(),
		BookID:    bookID,
		UserID:    userID,
		Interval:  interval,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo moves the record to next or returns ErrInvalidTransition
func (b *Borrowing) TransitionTo(next Status, now time.Time) error {
	if !b.Status.CanTransitionTo(next) {
		return NewInvalidTransitionError(b.Status, next)
	}
	b.Status = next
	b.UpdatedAt = now
	return nil
}

// Clone returns a detached copy so stores never share pointers with callers
func (b *Borrowing) Clone() *Borrowing {
	if b == nil {
		return nil
	}
	c := *b
	if b.AdminNote != nil {
		note := *b.AdminNote
		c.AdminNote = &note
	}
	return &c
}

// =====================================================
// ADMIN DECISION
// =====================================================

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionReject
}
