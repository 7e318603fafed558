package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"library-backend/internal/domains/borrowing/model"
	"library-backend/internal/domains/borrowing/repository"
	"library-backend/pkg/cache"
	"library-backend/pkg/logger"
)

// =====================================================
// BORROWING SERVICE IMPLEMENTATION
// =====================================================

type borrowingService struct {
	repo    repository.Repository
	catalog repository.Catalog
	emitter Emitter
	clock   Clock

	cache    cache.Cache
	cacheTTL time.Duration
}

type Option func(*borrowingService)

func WithClock(clock Clock) Option {
	return func(s *borrowingService) {
		s.clock = clock
	}
}

// WithAvailabilityCache caches GetAvailability responses. A zero ttl disables it.
// If the cache rejects an invalidation, a report may stay stale for up to ttl.
func WithAvailabilityCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *borrowingService) {
		if c == nil || ttl <= 0 {
			return
		}
		s.cache = c
		s.cacheTTL = ttl
	}
}

func NewBorrowingService(
	repo repository.Repository,
	catalog repository.Catalog,
	emitter Emitter,
	opts ...Option,
) ServiceInterface {
	s := &borrowingService{
		repo:    repo,
		catalog: catalog,
		emitter: emitter,
		clock:   SystemClock(time.UTC),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =====================================================
// CREATE
// =====================================================

func (s *borrowingService) CreateBorrowing(
	ctx context.Context,
	userID, bookID uuid.UUID,
	interval model.Interval,
) (*model.Borrowing, error) {
	// Step 1: Book must exist
	total, err := s.totalCopies(ctx, bookID)
	if err != nil {
		return nil, err
	}

	// Step 2: Dates
	interval = model.NewInterval(interval.StartDate, interval.EndDate)
	today := s.clock.Today()
	if interval.StartDate.Before(today) {
		return nil, model.NewInvalidRequestError("start_date cannot be in the past")
	}
	if !interval.EndDate.After(interval.StartDate) {
		return nil, model.NewInvalidRequestError("end_date must be after start_date")
	}

	// Step 3: Check and insert under the book lock
	borrowing := model.NewBorrowing(userID, bookID, interval, s.clock.Now())
	err = s.repo.WithinBookLock(ctx, bookID, func(ctx context.Context, repo repository.Repository) error {
		ok, err := s.fitsBooking(ctx, repo, bookID, interval, total)
		if err != nil {
			return err
		}
		if !ok {
			return model.NewUnavailableError(interval)
		}
		if err := repo.Save(ctx, borrowing); err != nil {
			return fmt.Errorf("save borrowing: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAvailability(ctx, bookID)

	logger.Info("Borrowing created", map[string]interface{}{
		"borrowing_id": borrowing.ID.String(),
		"book_id":      bookID.String(),
		"user_id":      userID.String(),
		"interval":     interval.String(),
	})

	return borrowing, nil
}

// =====================================================
// DECIDE (approve / reject)
// =====================================================

func (s *borrowingService) DecideBorrowing(
	ctx context.Context,
	borrowingID uuid.UUID,
	decision model.Decision,
	adminNote *string,
) (*model.Borrowing, error) {
	if !decision.IsValid() {
		return nil, model.NewInvalidRequestError("decision must be approve or reject")
	}

	current, err := s.findBorrowing(ctx, s.repo, borrowingID)
	if err != nil {
		return nil, err
	}

	if decision == model.DecisionReject {
		updated, err := s.transition(ctx, current, func(ctx context.Context, repo repository.Repository, b *model.Borrowing) error {
			if err := b.TransitionTo(model.StatusCancelled, s.clock.Now()); err != nil {
				return err
			}
			b.AdminNote = adminNote
			return nil
		})
		if err != nil {
			return nil, err
		}

		event := model.NewEvent(model.EventRejected, updated, s.clock.Now())
		event.Reason = adminNote
		s.emit(ctx, event)
		return updated, nil
	}

	// Capacity is read from the catalog before entering the critical section
	total, err := s.totalCopies(ctx, current.BookID)
	if err != nil {
		return nil, err
	}

	updated, err := s.transition(ctx, current, func(ctx context.Context, repo repository.Repository, b *model.Borrowing) error {
		if !b.Status.CanTransitionTo(model.StatusBorrowed) {
			return model.NewInvalidTransitionError(b.Status, model.StatusBorrowed)
		}
		ok, err := s.fitsApproval(ctx, repo, b, total)
		if err != nil {
			return err
		}
		if !ok {
			return model.NewConflictError()
		}
		if err := b.TransitionTo(model.StatusBorrowed, s.clock.Now()); err != nil {
			return err
		}
		b.AdminNote = adminNote
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, model.NewEvent(model.EventApproved, updated, s.clock.Now()))
	return updated, nil
}

// =====================================================
// RETURN
// =====================================================

func (s *borrowingService) ReturnBorrowing(ctx context.Context, borrowingID uuid.UUID) (*model.Borrowing, error) {
	current, err := s.findBorrowing(ctx, s.repo, borrowingID)
	if err != nil {
		return nil, err
	}

	updated, err := s.transition(ctx, current, func(_ context.Context, _ repository.Repository, b *model.Borrowing) error {
		return b.TransitionTo(model.StatusReturned, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, model.NewEvent(model.EventReturned, updated, s.clock.Now()))
	return updated, nil
}

// =====================================================
// CANCEL (owner only, pending only)
// =====================================================

func (s *borrowingService) CancelBorrowing(ctx context.Context, borrowingID, requesterID uuid.UUID) (*model.Borrowing, error) {
	current, err := s.findBorrowing(ctx, s.repo, borrowingID)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, current, func(_ context.Context, _ repository.Repository, b *model.Borrowing) error {
		if b.UserID != requesterID {
			return model.NewForbiddenError("You can only cancel your own borrowings")
		}
		return b.TransitionTo(model.StatusCancelled, s.clock.Now())
	})
}

// =====================================================
// QUERIES
// =====================================================

func (s *borrowingService) GetBorrowing(ctx context.Context, borrowingID uuid.UUID) (*model.Borrowing, error) {
	return s.findBorrowing(ctx, s.repo, borrowingID)
}

func (s *borrowingService) ListBookingsForBook(ctx context.Context, bookID uuid.UUID) ([]*model.Borrowing, error) {
	if _, err := s.totalCopies(ctx, bookID); err != nil {
		return nil, err
	}

	list, err := s.repo.FindByBookAndStatuses(ctx, bookID, model.ActiveStatuses, nil)
	if err != nil {
		return nil, fmt.Errorf("list bookings for book: %w", err)
	}
	return list, nil
}

func (s *borrowingService) ListUserBorrowings(ctx context.Context, userID uuid.UUID) ([]*model.Borrowing, error) {
	list, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user borrowings: %w", err)
	}
	return list, nil
}

func (s *borrowingService) ListBorrowings(ctx context.Context, q model.ListQuery) ([]*model.Borrowing, int, error) {
	q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, 0, model.NewInvalidRequestError(err.Error())
	}

	list, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("list borrowings: %w", err)
	}
	return list, total, nil
}

func (s *borrowingService) DueOn(ctx context.Context, day time.Time) ([]*model.Borrowing, error) {
	list, err := s.repo.FindByStatusEndingOn(ctx, model.StatusBorrowed, model.DateOf(day))
	if err != nil {
		return nil, fmt.Errorf("find borrowings due on %s: %w", day.Format(model.DateLayout), err)
	}
	return list, nil
}

// =====================================================
// HELPERS
// =====================================================

func (s *borrowingService) findBorrowing(ctx context.Context, repo repository.Repository, id uuid.UUID) (*model.Borrowing, error) {
	b, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrBorrowingNotFound) {
			return nil, model.NewBorrowingNotFoundError()
		}
		return nil, fmt.Errorf("find borrowing: %w", err)
	}
	return b, nil
}

type applyFunc func(ctx context.Context, repo repository.Repository, b *model.Borrowing) error

// transition re-reads the record under its book lock, lets apply mutate it and
// saves it. The status observed before the lock is never trusted.
func (s *borrowingService) transition(ctx context.Context, current *model.Borrowing, apply applyFunc) (*model.Borrowing, error) {
	var (
		updated *model.Borrowing
		from    model.Status
	)

	err := s.repo.WithinBookLock(ctx, current.BookID, func(ctx context.Context, repo repository.Repository) error {
		b, err := s.findBorrowing(ctx, repo, current.ID)
		if err != nil {
			return err
		}
		from = b.Status

		if err := apply(ctx, repo, b); err != nil {
			return err
		}
		if err := repo.Save(ctx, b); err != nil {
			return fmt.Errorf("save borrowing: %w", err)
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAvailability(ctx, updated.BookID)

	log.Info().
		Str("borrowing_id", updated.ID.String()).
		Str("book_id", updated.BookID.String()).
		Str("user_id", updated.UserID.String()).
		Str("from", string(from)).
		Str("to", string(updated.Status)).
		Msg("Borrowing status changed")

	return updated, nil
}

// emit delivers the event after the transition committed. Failures are logged only.
func (s *borrowingService) emit(ctx context.Context, event model.Event) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(context.WithoutCancel(ctx), event); err != nil {
		logger.ErrorWithFields("Failed to emit borrowing event", err, map[string]interface{}{
			"borrowing_id": event.BorrowingID.String(),
			"kind":         string(event.Kind),
		})
	}
}

func (s *borrowingService) warn(msg string, err error, bookID uuid.UUID) {
	log.Warn().Err(err).Str("book_id", bookID.String()).Msg(msg)
}
