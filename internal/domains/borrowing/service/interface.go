package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"library-backend/internal/domains/borrowing/model"
)

// =====================================================
// BORROWING SERVICE INTERFACE
// =====================================================

type ServiceInterface interface {
	// ========================================
	// LIFECYCLE
	// ========================================

	// CreateBorrowing books interval for the user as a pending request
	CreateBorrowing(ctx context.Context, userID, bookID uuid.UUID, interval model.Interval) (*model.Borrowing, error)

	// DecideBorrowing approves (pending -> borrowed) or rejects (pending -> cancelled)
	DecideBorrowing(ctx context.Context, borrowingID uuid.UUID, decision model.Decision, adminNote *string) (*model.Borrowing, error)

	// ReturnBorrowing closes an active loan (borrowed -> returned)
	ReturnBorrowing(ctx context.Context, borrowingID uuid.UUID) (*model.Borrowing, error)

	// CancelBorrowing lets the owner withdraw a pending request
	CancelBorrowing(ctx context.Context, borrowingID, requesterID uuid.UUID) (*model.Borrowing, error)

	// ========================================
	// AVAILABILITY
	// ========================================

	AvailabilityEngine

	// GetAvailability combines today's availability, the next free date and the active bookings
	GetAvailability(ctx context.Context, bookID uuid.UUID) (*model.AvailabilityResponse, error)

	// ========================================
	// QUERIES
	// ========================================

	GetBorrowing(ctx context.Context, borrowingID uuid.UUID) (*model.Borrowing, error)

	// ListBookingsForBook returns active bookings ascending by start date
	ListBookingsForBook(ctx context.Context, bookID uuid.UUID) ([]*model.Borrowing, error)

	// ListUserBorrowings returns the user's borrowings, newest first
	ListUserBorrowings(ctx context.Context, userID uuid.UUID) ([]*model.Borrowing, error)

	// ListBorrowings is the admin view over all borrowings
	ListBorrowings(ctx context.Context, q model.ListQuery) ([]*model.Borrowing, int, error)

	// ========================================
	// JOBS
	// ========================================

	// DueOn returns borrowed records whose end date is day
	DueOn(ctx context.Context, day time.Time) ([]*model.Borrowing, error)
}

// AvailabilityEngine answers capacity questions for one book
type AvailabilityEngine interface {
	// IsAvailable counts pending+borrowed bookings overlapping interval against total copies
	IsAvailable(ctx context.Context, bookID uuid.UUID, interval model.Interval) (bool, error)

	// CurrentAvailability counts only borrowed records that cover today
	CurrentAvailability(ctx context.Context, bookID uuid.UUID) (bool, error)

	// NextAvailableDate returns nil when the book is available today or has no active bookings
	NextAvailableDate(ctx context.Context, bookID uuid.UUID) (*time.Time, error)
}

// Emitter receives lifecycle events. Implementations live in the event package.
type Emitter interface {
	Emit(ctx context.Context, event model.Event) error
}
