package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"library-backend/internal/domains/borrowing/model"
)

// =====================================================
// IN-MEMORY REPOSITORY
// =====================================================

// MemoryRepository keeps borrowings in process memory. Used by tests and
// single-instance deployments. Writes made inside WithinBookLock are not
// rolled back when fn fails, so callers should write last.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*model.Borrowing

	locks bookLocks
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[uuid.UUID]*model.Borrowing),
	}
}

func (r *MemoryRepository) Save(_ context.Context, b *model.Borrowing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.records[b.ID]; ok {
		// Only the mutable part of a record changes after creation
		updated := existing.Clone()
		updated.Status = b.Status
		updated.AdminNote = b.AdminNote
		updated.UpdatedAt = b.UpdatedAt
		r.records[b.ID] = updated
		return nil
	}

	r.records[b.ID] = b.Clone()
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id uuid.UUID) (*model.Borrowing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.records[id]
	if !ok {
		return nil, model.ErrBorrowingNotFound
	}
	return b.Clone(), nil
}

func (r *MemoryRepository) FindByBookAndStatuses(
	_ context.Context,
	bookID uuid.UUID,
	statuses []model.Status,
	window *model.Interval,
) ([]*model.Borrowing, error) {
	q := model.ListQuery{BookID: &bookID, Statuses: statuses, Window: window}
	if len(statuses) == 0 {
		return []*model.Borrowing{}, nil
	}

	list := r.filter(q.Matches)
	sortByStart(list)
	return list, nil
}

func (r *MemoryRepository) FindByUser(_ context.Context, userID uuid.UUID) ([]*model.Borrowing, error) {
	list := r.filter(func(b *model.Borrowing) bool { return b.UserID == userID })
	sortByCreatedDesc(list)
	return list, nil
}

func (r *MemoryRepository) FindByStatusEndingOn(_ context.Context, status model.Status, day time.Time) ([]*model.Borrowing, error) {
	d := model.DateOf(day)
	list := r.filter(func(b *model.Borrowing) bool {
		return b.Status == status && b.Interval.EndDate.Equal(d)
	})
	sort.Slice(list, func(i, j int) bool { return list[i].ID.String() < list[j].ID.String() })
	return list, nil
}

func (r *MemoryRepository) List(_ context.Context, q model.ListQuery) ([]*model.Borrowing, int, error) {
	q.Normalize()

	list := r.filter(q.Matches)
	if q.Order == model.OrderStartAsc {
		sortByStart(list)
	} else {
		sortByCreatedDesc(list)
	}

	total := len(list)
	start := q.Offset()
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}

	return list[start:end], total, nil
}

func (r *MemoryRepository) WithinBookLock(
	ctx context.Context,
	bookID uuid.UUID,
	fn func(ctx context.Context, repo Repository) error,
) error {
	unlock := r.locks.lock(bookID)
	defer unlock()

	return fn(ctx, &lockedMemoryRepository{MemoryRepository: r, held: bookID})
}

func (r *MemoryRepository) filter(keep func(*model.Borrowing) bool) []*model.Borrowing {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Borrowing, 0)
	for _, b := range r.records {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	return out
}

// lockedMemoryRepository is handed to WithinBookLock callbacks. Re-locking
// the held book runs inline instead of deadlocking.
type lockedMemoryRepository struct {
	*MemoryRepository
	held uuid.UUID
}

func (r *lockedMemoryRepository) WithinBookLock(
	ctx context.Context,
	bookID uuid.UUID,
	fn func(ctx context.Context, repo Repository) error,
) error {
	if bookID == r.held {
		return fn(ctx, r)
	}
	return r.MemoryRepository.WithinBookLock(ctx, bookID, fn)
}

func sortByStart(list []*model.Borrowing) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.Interval.StartDate.Equal(b.Interval.StartDate) {
			return a.Interval.StartDate.Before(b.Interval.StartDate)
		}
		return a.ID.String() < b.ID.String()
	})
}

func sortByCreatedDesc(list []*model.Borrowing) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// =====================================================
// PER-BOOK LOCKS
// =====================================================

// bookLocks hands out one mutex per book. Entries are reference counted and
// dropped when nobody holds or waits for them.
type bookLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*bookLock
}

type bookLock struct {
	mu   sync.Mutex
	refs int
}

func (l *bookLocks) lock(bookID uuid.UUID) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uuid.UUID]*bookLock)
	}
	entry, ok := l.locks[bookID]
	if !ok {
		entry = &bookLock{}
		l.locks[bookID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, bookID)
		}
		l.mu.Unlock()
	}
}

// =====================================================
// IN-MEMORY CATALOG
// =====================================================

// MemoryCatalog is a settable Catalog for tests and local runs
type MemoryCatalog struct {
	mu     sync.RWMutex
	copies map[uuid.UUID]int
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{copies: make(map[uuid.UUID]int)}
}

func (c *MemoryCatalog) SetTotalCopies(bookID uuid.UUID, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.copies[bookID] = total
}

func (c *MemoryCatalog) GetTotalCopies(_ context.Context, bookID uuid.UUID) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total, ok := c.copies[bookID]
	if !ok {
		return 0, model.ErrBookNotFound
	}
	return total, nil
}
