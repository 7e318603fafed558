package service_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/domains/borrowing/event"
	"library-backend/internal/domains/borrowing/model"
	"library-backend/internal/domains/borrowing/repository"
	"library-backend/internal/domains/borrowing/service"
)

// =====================================================
// FIXTURE
// =====================================================

type fixture struct {
	repo    *repository.MemoryRepository
	catalog *repository.MemoryCatalog
	events  *event.Recorder
	svc     service.ServiceInterface
}

func newFixture(t *testing.T, today string, opts ...service.Option) *fixture {
	t.Helper()

	now, err := model.ParseDate(today)
	require.NoError(t, err)

	f := &fixture{
		repo:    repository.NewMemoryRepository(),
		catalog: repository.NewMemoryCatalog(),
		events:  &event.Recorder{},
	}
	opts = append([]service.Option{service.WithClock(service.FixedClock{T: now.Add(10 * time.Hour)})}, opts...)
	f.svc = service.NewBorrowingService(f.repo, f.catalog, f.events, opts...)
	return f
}

func (f *fixture) book(copies int) uuid.UUID {
	id := uuid.New()
	f.catalog.SetTotalCopies(id, copies)
	return id
}

// seed stores a record directly, bypassing the create-time check
func (f *fixture) seed(t *testing.T, bookID uuid.UUID, start, end string, status model.Status) *model.Borrowing {
	t.Helper()
	b := model.NewBorrowing(uuid.New(), bookID, span(start, end), time.Now())
	b.Status = status
	require.NoError(t, f.repo.Save(context.Background(), b))
	return b
}

func span(start, end string) model.Interval {
	s, err := model.ParseDate(start)
	if err != nil {
		panic(err)
	}
	e, err := model.ParseDate(end)
	if err != nil {
		panic(err)
	}
	return model.Interval{StartDate: s, EndDate: e}
}

func assertKind(t *testing.T, want model.ErrorKind, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, model.KindOf(err), err.Error())
}

// =====================================================
// CREATE
// =====================================================

func TestCreateBorrowing_SingleCopyDoubleBook(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-02-20")
	bookID := f.book(1)

	first, err := f.svc.CreateBorrowing(ctx, uuid.New(), bookID, span("2024-03-01", "2024-03-10"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, first.Status)

	_, err = f.svc.CreateBorrowing(ctx, uuid.New(), bookID, span("2024-03-01", "2024-03-10"))
	assertKind(t, model.KindUnavailable, err)

	// Touching the last day still overlaps
	_, err = f.svc.CreateBorrowing(ctx, uuid.New(), bookID, span("2024-03-10", "2024-03-12"))
	assertKind(t, model.KindUnavailable, err)

	// The day after is free
	_, err = f.svc.CreateBorrowing(ctx, uuid.New(), bookID, span("2024-03-11", "2024-03-12"))
	assert.NoError(t, err)
}

func TestCreateBorrowing_CountsPendingAndBorrowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-02-20")
	bookID := f.book(2)

	f.seed(t, bookID, "2024-03-01", "2024-03-05", model.StatusBorrowed)
	f.seed(t, bookID, "2024-03-03", "2024-03-08", model.StatusPending)
	f.seed(t, bookID, "2024-03-01", "2024-03-10", model.StatusReturned)
	f.seed(t, bookID, "2024-03-01", "2024-03-10", model.StatusCancelled)

	_, err := f.svc.CreateBorrowing(ctx, uuid.New(), bookID, span("2024-03-04", "2024-03-06"))
	assertKind(t, model.KindUnavailable, err)

	ok, err := f.svc.IsAvailable(ctx, bookID, span("2024-03-06", "2024-03-07"))
	require.NoError(t, err)
	assert.True(t, ok, "only the pending record overlaps")
}

func TestCreateBorrowing_InvalidDates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-05")
	bookID := f.book(1)

	tests := map[string]model.Interval{
		"start in the past":     span("2024-03-04", "2024-03-08"),
		"end equals start":      span("2024-03-06", "2024-03-06"),
		"end before start":      span("2024-03-08", "2024-03-06"),
		"past and inverted too": span("2024-03-01", "2024-02-01"),
	}
	for name, interval := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateBorrowing(ctx, uuid.New(), bookID, interval)
			assertKind(t, model.KindInvalidRequest, err)
		})
	}

	_, err := f.svc.CreateBorrowing(ctx, uuid.New(), bookID, span("2024-03-05", "2024-03-06"))
	assert.NoError(t, err, "starting today is allowed")
}

func TestCreateBorrowing_UnknownBook(t *testing.T) {
	f := newFixture(t, "2024-03-05")

	_, err := f.svc.CreateBorrowing(context.Background(), uuid.New(), uuid.New(), span("2024-03-06", "2024-03-08"))
	assertKind(t, model.KindNotFound, err)

	_, err = f.svc.ListBookingsForBook(context.Background(), uuid.New())
	assertKind(t, model.KindNotFound, err)

	_, err = f.svc.GetAvailability(context.Background(), uuid.New())
	assertKind(t, model.KindNotFound, err)
}

func TestCreateBorrowing_ConcurrentKeepsCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-02-20")
	const copies = 3
	bookID := f.book(copies)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateBorrowing(ctx, uuid.New(), bookID, span("2024-03-01", "2024-03-10"))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.Equal(t, model.KindUnavailable, model.KindOf(err))
		}()
	}
	wg.Wait()

	assert.Equal(t, copies, succeeded)

	active, err := f.svc.ListBookingsForBook(ctx, bookID)
	require.NoError(t, err)
	assert.Len(t, active, copies)
}

// =====================================================
// DECIDE
// =====================================================

func TestDecideBorrowing_ApprovalRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-02-20")
	bookID := f.book(1)

	first := f.seed(t, bookID, "2024-03-01", "2024-03-10", model.StatusPending)
	second := f.seed(t, bookID, "2024-03-10", "2024-03-15", model.StatusPending)

	approved, err := f.svc.DecideBorrowing(ctx, first.ID, model.DecisionApprove, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusBorrowed, approved.Status)

	_, err = f.svc.DecideBorrowing(ctx, second.ID, model.DecisionApprove, nil)
	assertKind(t, model.KindConflict, err)

	still, err := f.svc.GetBorrowing(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, still.Status, "conflict leaves the request pending")

	assert.Equal(t, 1, f.events.Count(model.EventApproved))
}

func TestDecideBorrowing_ApproveIgnoresOtherPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-02-20")
	bookID := f.book(1)

	f.seed(t, bookID, "2024-03-01", "2024-03-10", model.StatusPending)
	target := f.seed(t, bookID, "2024-03-05", "2024-03-12", model.StatusPending)

	approved, err := f.svc.DecideBorrowing(ctx, target.ID, model.DecisionApprove, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusBorrowed, approved.Status)
}

func TestDecideBorrowing_ConcurrentApprovals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-02-20")
	bookID := f.book(1)

	ids := make([]uuid.UUID, 0, 10)
	for i := 0; i < 10; i++ {
		ids = append(ids, f.seed(t, bookID, "2024-03-01", "2024-03-10", model.StatusPending).ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, _ = f.svc.DecideBorrowing(ctx, id, model.DecisionApprove, nil)
		}(id)
	}
	wg.Wait()

	borrowed, _, err := f.svc.ListBorrowings(ctx, model.ListQuery{
		BookID:   &bookID,
		Statuses: []model.Status{model.StatusBorrowed},
	})
	require.NoError(t, err)
	assert.Len(t, borrowed, 1)
	assert.Equal(t, 1, f.events.Count(model.EventApproved))
}

func TestDecideBorrowing_Reject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-02-20")
	bookID := f.book(1)
	b := f.seed(t, bookID, "2024-03-01", "2024-03-10", model.StatusPending)

	note := "damaged copy"
	rejected, err := f.svc.DecideBorrowing(ctx, b.ID, model.DecisionReject, &note)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, rejected.Status)
	require.NotNil(t, rejected.AdminNote)
	assert.Equal(t, note, *rejected.AdminNote)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventRejected, events[0].Kind)
	require.NotNil(t, events[0].Reason)
	assert.Equal(t, note, *events[0].Reason)

	// Capacity is released
	_, err = f.svc.CreateBorrowing(ctx, uuid.New(), bookID, span("2024-03-01", "2024-03-10"))
	assert.NoError(t, err)
}

func TestDecideBorrowing_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-02-20")
	bookID := f.book(1)
	returned := f.seed(t, bookID, "2024-03-01", "2024-03-10", model.StatusReturned)

	_, err := f.svc.DecideBorrowing(ctx, returned.ID, model.DecisionApprove, nil)
	assertKind(t, model.KindInvalidTransition, err)

	_, err = f.svc.DecideBorrowing(ctx, returned.ID, model.DecisionReject, nil)
	assertKind(t, model.KindInvalidTransition, err)

	_, err = f.svc.DecideBorrowing(ctx, returned.ID, "maybe", nil)
	assertKind(t, model.KindInvalidRequest, err)

	_, err = f.svc.DecideBorrowing(ctx, uuid.New(), model.DecisionApprove, nil)
	assertKind(t, model.KindNotFound, err)

	assert.Empty(t, f.events.Events())
}

// =====================================================
// RETURN / CANCEL
// =====================================================

func TestReturnBorrowing_Twice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-05")
	bookID := f.book(1)
	b := f.seed(t, bookID, "2024-03-01", "2024-03-10", model.StatusBorrowed)

	returned, err := f.svc.ReturnBorrowing(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReturned, returned.Status)

	_, err = f.svc.ReturnBorrowing(ctx, b.ID)
	assertKind(t, model.KindInvalidTransition, err)

	assert.Equal(t, 1, f.events.Count(model.EventReturned))
}

func TestReturnBorrowing_Concurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-05")
	b := f.seed(t, f.book(1), "2024-03-01", "2024-03-10", model.StatusBorrowed)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ReturnBorrowing(ctx, b.ID)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.Equal(t, model.KindInvalidTransition, model.KindOf(err))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.events.Count(model.EventReturned))
}

func TestReturnBorrowing_PendingIsInvalid(t *testing.T) {
	f := newFixture(t, "2024-03-05")
	b := f.seed(t, f.book(1), "2024-03-06", "2024-03-10", model.StatusPending)

	_, err := f.svc.ReturnBorrowing(context.Background(), b.ID)
	assertKind(t, model.KindInvalidTransition, err)
}

func TestCancelBorrowing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-02-20")
	bookID := f.book(1)

	t.Run("borrowed record cannot be cancelled", func(t *testing.T) {
		b := f.seed(t, bookID, "2024-03-01", "2024-03-10", model.StatusBorrowed)
		_, err := f.svc.CancelBorrowing(ctx, b.ID, b.UserID)
		assertKind(t, model.KindInvalidTransition, err)
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		b := f.seed(t, bookID, "2024-04-01", "2024-04-10", model.StatusPending)
		_, err := f.svc.CancelBorrowing(ctx, b.ID, uuid.New())
		assertKind(t, model.KindForbidden, err)
	})

	t.Run("owner cancels pending", func(t *testing.T) {
		b := f.seed(t, bookID, "2024-05-01", "2024-05-10", model.StatusPending)
		cancelled, err := f.svc.CancelBorrowing(ctx, b.ID, b.UserID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, cancelled.Status)
	})

	assert.Empty(t, f.events.Events(), "cancel emits nothing")
}

// =====================================================
// AVAILABILITY
// =====================================================

func TestNextAvailableDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-05")
	bookID := f.book(1)
	f.seed(t, bookID, "2024-03-01", "2024-03-10", model.StatusBorrowed)

	available, err := f.svc.CurrentAvailability(ctx, bookID)
	require.NoError(t, err)
	assert.False(t, available)

	next, err := f.svc.NextAvailableDate(ctx, bookID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "2024-03-11", next.Format(model.DateLayout))

	report, err := f.svc.GetAvailability(ctx, bookID)
	require.NoError(t, err)
	assert.False(t, report.Available)
	require.NotNil(t, report.NextAvailable)
	assert.Equal(t, "2024-03-11", *report.NextAvailable)
	assert.Len(t, report.Bookings, 1)
}

func TestCurrentAvailability_IgnoresPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-05")
	bookID := f.book(1)
	f.seed(t, bookID, "2024-03-01", "2024-03-10", model.StatusPending)

	available, err := f.svc.CurrentAvailability(ctx, bookID)
	require.NoError(t, err)
	assert.True(t, available, "pending holds booking capacity, not a copy")

	next, err := f.svc.NextAvailableDate(ctx, bookID)
	require.NoError(t, err)
	assert.Nil(t, next)

	// The create check still sees the pending request
	ok, err := f.svc.IsAvailable(ctx, bookID, span("2024-03-05", "2024-03-06"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListBookingsForBook_Ordered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-02-20")
	bookID := f.book(5)

	late := f.seed(t, bookID, "2024-04-01", "2024-04-05", model.StatusPending)
	early := f.seed(t, bookID, "2024-03-01", "2024-03-05", model.StatusBorrowed)
	f.seed(t, bookID, "2024-02-01", "2024-02-05", model.StatusReturned)

	list, err := f.svc.ListBookingsForBook(ctx, bookID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, early.ID, list[0].ID)
	assert.Equal(t, late.ID, list[1].ID)
}

func TestDueOn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-05")
	bookID := f.book(3)

	due := f.seed(t, bookID, "2024-03-01", "2024-03-06", model.StatusBorrowed)
	f.seed(t, bookID, "2024-03-02", "2024-03-06", model.StatusPending)
	f.seed(t, bookID, "2024-03-01", "2024-03-07", model.StatusBorrowed)

	list, err := f.svc.DueOn(ctx, span("2024-03-06", "2024-03-06").StartDate)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, due.ID, list[0].ID)
}

// =====================================================
// FAILURES
// =====================================================

type failingRepo struct {
	repository.Repository
	err error
}

func (r failingRepo) FindByBookAndStatuses(context.Context, uuid.UUID, []model.Status, *model.Interval) ([]*model.Borrowing, error) {
	return nil, r.err
}

func (r failingRepo) WithinBookLock(ctx context.Context, _ uuid.UUID, fn func(context.Context, repository.Repository) error) error {
	return fn(ctx, r)
}

func TestStoreFailurePropagates(t *testing.T) {
	ctx := context.Background()
	storeErr := errors.New("connection refused")

	catalog := repository.NewMemoryCatalog()
	bookID := uuid.New()
	catalog.SetTotalCopies(bookID, 1)

	svc := service.NewBorrowingService(
		failingRepo{Repository: repository.NewMemoryRepository(), err: storeErr},
		catalog,
		&event.Recorder{},
		service.WithClock(service.FixedClock{T: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)}),
	)

	_, err := svc.CreateBorrowing(ctx, uuid.New(), bookID, span("2024-03-01", "2024-03-10"))
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, model.KindInternal, model.KindOf(err))

	_, err = svc.GetAvailability(ctx, bookID)
	assert.ErrorIs(t, err, storeErr)
}

func TestEmitFailureKeepsTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-05")
	f.events.Err = errors.New("queue down")
	b := f.seed(t, f.book(1), "2024-03-01", "2024-03-10", model.StatusBorrowed)

	returned, err := f.svc.ReturnBorrowing(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReturned, returned.Status)

	stored, err := f.svc.GetBorrowing(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReturned, stored.Status)
}

// =====================================================
// MIXED LOAD
// =====================================================

func TestMixedOperations_NeverOverbook(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-02-20")
	const copies = 2
	bookID := f.book(copies)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		known []*model.Borrowing
	)
	pick := func(r *rand.Rand) *model.Borrowing {
		mu.Lock()
		defer mu.Unlock()
		if len(known) == 0 {
			return nil
		}
		return known[r.Intn(len(known))]
	}
	allowed := map[model.ErrorKind]bool{
		model.KindUnavailable:       true,
		model.KindConflict:          true,
		model.KindInvalidTransition: true,
	}

	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))

			for i := 0; i < 40; i++ {
				var err error
				switch op := r.Intn(4); {
				case op == 0 || pick(r) == nil:
					start := time.Date(2024, 3, 1+r.Intn(20), 0, 0, 0, 0, time.UTC)
					interval := model.NewInterval(start, start.AddDate(0, 0, 1+r.Intn(5)))
					var b *model.Borrowing
					b, err = f.svc.CreateBorrowing(ctx, uuid.New(), bookID, interval)
					if err == nil {
						mu.Lock()
						known = append(known, b)
						mu.Unlock()
					}
				case op == 1:
					b := pick(r)
					_, err = f.svc.CancelBorrowing(ctx, b.ID, b.UserID)
				case op == 2:
					_, err = f.svc.DecideBorrowing(ctx, pick(r).ID, model.DecisionApprove, nil)
				default:
					_, err = f.svc.ReturnBorrowing(ctx, pick(r).ID)
				}
				if err != nil {
					assert.True(t, allowed[model.KindOf(err)], err.Error())
				}
			}
		}(int64(w + 1))
	}
	wg.Wait()

	active, err := f.svc.ListBookingsForBook(ctx, bookID)
	require.NoError(t, err)

	for day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC); day.Month() == time.March; day = day.AddDate(0, 0, 1) {
		n := 0
		for _, b := range active {
			if b.Interval.Contains(day) {
				n++
			}
		}
		assert.LessOrEqual(t, n, copies, day.Format(model.DateLayout))
	}
}
