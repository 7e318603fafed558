package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"library-backend/internal/domains/borrowing/model"
	"library-backend/internal/domains/borrowing/repository"
)

// =====================================================
// AVAILABILITY ENGINE
// =====================================================

// horizon closes the "from today on" window used for future-relevant bookings
var horizon = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

func fromDay(day time.Time) *model.Interval {
	return &model.Interval{StartDate: model.DateOf(day), EndDate: horizon}
}

// totalCopies asks the catalog and maps an unknown book to the coded NotFound error
func (s *borrowingService) totalCopies(ctx context.Context, bookID uuid.UUID) (int, error) {
	total, err := s.catalog.GetTotalCopies(ctx, bookID)
	if err != nil {
		if errors.Is(err, model.ErrBookNotFound) {
			return 0, model.NewBookNotFoundError()
		}
		return 0, fmt.Errorf("get total copies: %w", err)
	}
	return total, nil
}

// countOverlapping counts records of the book in statuses overlapping interval,
// skipping excludeID. Reads go through repo so callers inside a book lock see
// a consistent view.
func countOverlapping(
	ctx context.Context,
	repo repository.Repository,
	bookID uuid.UUID,
	interval model.Interval,
	statuses []model.Status,
	excludeID uuid.UUID,
) (int, error) {
	records, err := repo.FindByBookAndStatuses(ctx, bookID, statuses, &interval)
	if err != nil {
		return 0, fmt.Errorf("find overlapping borrowings: %w", err)
	}

	count := 0
	for _, b := range records {
		if b.ID == excludeID {
			continue
		}
		// The store filters by window already; keep the rule here too so the
		// engine never depends on a store's idea of overlap.
		if b.Interval.Overlaps(interval) {
			count++
		}
	}
	return count, nil
}

// IsAvailable reports whether one more booking fits into interval
func (s *borrowingService) IsAvailable(ctx context.Context, bookID uuid.UUID, interval model.Interval) (bool, error) {
	total, err := s.totalCopies(ctx, bookID)
	if err != nil {
		return false, err
	}
	return s.fitsBooking(ctx, s.repo, bookID, interval, total)
}

// fitsBooking is the create-time check: pending and borrowed both hold capacity
func (s *borrowingService) fitsBooking(
	ctx context.Context,
	repo repository.Repository,
	bookID uuid.UUID,
	interval model.Interval,
	total int,
) (bool, error) {
	count, err := countOverlapping(ctx, repo, bookID, interval, model.ActiveStatuses, uuid.Nil)
	if err != nil {
		return false, err
	}
	return count < total, nil
}

// fitsApproval is the approve-time check: only copies already handed out for an
// overlapping interval can have been lost since the request was created
func (s *borrowingService) fitsApproval(
	ctx context.Context,
	repo repository.Repository,
	b *model.Borrowing,
	total int,
) (bool, error) {
	count, err := countOverlapping(ctx, repo, b.BookID, b.Interval, []model.Status{model.StatusBorrowed}, b.ID)
	if err != nil {
		return false, err
	}
	return count < total, nil
}

// CurrentAvailability reports whether a physical copy is on the shelf today
func (s *borrowingService) CurrentAvailability(ctx context.Context, bookID uuid.UUID) (bool, error) {
	snap, err := s.snapshot(ctx, bookID)
	if err != nil {
		return false, err
	}
	return snap.available, nil
}

// NextAvailableDate is the day after the earliest end date among active
// bookings still relevant today. It ignores how many copies free up on that day.
func (s *borrowingService) NextAvailableDate(ctx context.Context, bookID uuid.UUID) (*time.Time, error) {
	snap, err := s.snapshot(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return snap.nextAvailable, nil
}

// availabilitySnapshot is the reporting view of one book on one day
type availabilitySnapshot struct {
	total         int
	available     bool
	nextAvailable *time.Time
	bookings      []*model.Borrowing // active, endDate >= today, ascending by start
}

func (s *borrowingService) snapshot(ctx context.Context, bookID uuid.UUID) (*availabilitySnapshot, error) {
	total, err := s.totalCopies(ctx, bookID)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	bookings, err := s.repo.FindByBookAndStatuses(ctx, bookID, model.ActiveStatuses, fromDay(today))
	if err != nil {
		return nil, fmt.Errorf("find active borrowings: %w", err)
	}

	held := 0
	for _, b := range bookings {
		if b.Status == model.StatusBorrowed && b.Interval.Contains(today) {
			held++
		}
	}

	snap := &availabilitySnapshot{
		total:     total,
		available: held < total,
		bookings:  bookings,
	}
	if !snap.available {
		snap.nextAvailable = nextAfterEarliestEnd(bookings, today)
	}
	return snap, nil
}

func nextAfterEarliestEnd(bookings []*model.Borrowing, today time.Time) *time.Time {
	var earliest *time.Time
	for _, b := range bookings {
		end := b.Interval.EndDate
		if end.Before(today) {
			continue
		}
		if earliest == nil || end.Before(*earliest) {
			e := end
			earliest = &e
		}
	}
	if earliest == nil {
		return nil
	}
	next := model.NextDay(*earliest)
	return &next
}

// =====================================================
// GET AVAILABILITY (cached report)
// =====================================================

// versionTTL plus the report ttl keeps a version alive past any report stored under it
const versionTTL = 24 * time.Hour

func availabilityVersionKey(bookID uuid.UUID) string {
	return fmt.Sprintf("borrowing:availability:%s:version", bookID)
}

// Reports are stored under the version read before their snapshot was built.
// A write bumps the version, so a report that raced with it is never served.
func availabilityCacheKey(bookID uuid.UUID, today time.Time, version string) string {
	return fmt.Sprintf("borrowing:availability:%s:%s:%s", bookID, today.Format(model.DateLayout), version)
}

func (s *borrowingService) GetAvailability(ctx context.Context, bookID uuid.UUID) (*model.AvailabilityResponse, error) {
	key, cacheable := s.availabilityKey(ctx, bookID)

	if cacheable {
		var cached model.AvailabilityResponse
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.warn("availability cache read failed", err, bookID)
		} else if found {
			return &cached, nil
		}
	}

	snap, err := s.snapshot(ctx, bookID)
	if err != nil {
		return nil, err
	}

	resp := &model.AvailabilityResponse{
		BookID:      bookID,
		TotalCopies: snap.total,
		Available:   snap.available,
		Bookings:    model.ToBookingSlots(snap.bookings),
	}
	if snap.nextAvailable != nil {
		next := snap.nextAvailable.Format(model.DateLayout)
		resp.NextAvailable = &next
	}

	if cacheable {
		if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
			s.warn("availability cache write failed", err, bookID)
		}
	}

	return resp, nil
}

// availabilityKey resolves the report key for today's version of the book.
// Without a readable version the report is computed but not cached.
func (s *borrowingService) availabilityKey(ctx context.Context, bookID uuid.UUID) (string, bool) {
	if s.cache == nil {
		return "", false
	}

	var version string
	if _, err := s.cache.Get(ctx, availabilityVersionKey(bookID), &version); err != nil {
		s.warn("availability cache version read failed", err, bookID)
		return "", false
	}
	return availabilityCacheKey(bookID, s.clock.Today(), version), true
}

// invalidateAvailability bumps the book's cache version, orphaning every stored report
func (s *borrowingService) invalidateAvailability(ctx context.Context, bookID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, availabilityVersionKey(bookID), uuid.NewString(), versionTTL+s.cacheTTL); err != nil {
		s.warn("availability cache invalidation failed", err, bookID)
	}
}
