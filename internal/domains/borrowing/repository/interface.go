package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"library-backend/internal/domains/borrowing/model"
)

// =====================================================
// BORROWING REPOSITORY INTERFACE
// =====================================================

// Repository persists borrowings. It holds no business rules.
type Repository interface {
	// Save inserts a new record or updates status / admin note / updated_at of an existing one
	Save(ctx context.Context, b *model.Borrowing) error

	// FindByID returns model.ErrBorrowingNotFound when absent
	FindByID(ctx context.Context, id uuid.UUID) (*model.Borrowing, error)

	// FindByBookAndStatuses returns the book's records in any of statuses, optionally
	// restricted to those overlapping window, ordered by start date ascending
	FindByBookAndStatuses(ctx context.Context, bookID uuid.UUID, statuses []model.Status, window *model.Interval) ([]*model.Borrowing, error)

	// FindByUser returns every record of the user, newest first
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*model.Borrowing, error)

	// FindByStatusEndingOn returns records in status whose end date is day (all books)
	FindByStatusEndingOn(ctx context.Context, status model.Status, day time.Time) ([]*model.Borrowing, error)

	// List applies a typed query and returns one page plus the total match count
	List(ctx context.Context, q model.ListQuery) ([]*model.Borrowing, int, error)

	// WithinBookLock runs fn while holding the exclusive lock for bookID.
	// All reads and writes of the critical section must go through the
	// Repository passed to fn. A non-nil error from fn aborts the unit of work.
	WithinBookLock(ctx context.Context, bookID uuid.UUID, fn func(ctx context.Context, repo Repository) error) error
}

// =====================================================
// CATALOG (external collaborator)
// =====================================================

// Catalog exposes the inventory fact the engine reads
type Catalog interface {
	// GetTotalCopies returns model.ErrBookNotFound for unknown books
	GetTotalCopies(ctx context.Context, bookID uuid.UUID) (int, error)
}
