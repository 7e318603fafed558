package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// =====================================================
// REQUEST DTOs
// =====================================================

// CreateBorrowingRequest request to borrow a book for a date range
type CreateBorrowingRequest struct {
	BookID    uuid.UUID `json:"book_id" binding:"required"`
	StartDate string    `json:"start_date" binding:"required"`
	EndDate   string    `json:"end_date" binding:"required"`
}

// Validate checks shape only. Ordering and "not in the past" rules depend on
// the clock and live in the service.
func (r CreateBorrowingRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BookID, validation.By(func(v interface{}) error {
			if id, _ := v.(uuid.UUID); id == uuid.Nil {
				return validation.NewError("validation_required", "book_id is required")
			}
			return nil
		})),
		validation.Field(&r.StartDate,
			validation.Required.Error("start_date is required"),
			validation.Date(DateLayout).Error("start_date must be YYYY-MM-DD"),
		),
		validation.Field(&r.EndDate,
			validation.Required.Error("end_date is required"),
			validation.Date(DateLayout).Error("end_date must be YYYY-MM-DD"),
		),
	)
}

// Interval parses both dates. Call Validate first.
func (r CreateBorrowingRequest) Interval() (Interval, error) {
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return Interval{}, err
	}
	end, err := ParseDate(r.EndDate)
	if err != nil {
		return Interval{}, err
	}
	return Interval{StartDate: start, EndDate: end}, nil
}

// DecideBorrowingRequest admin request to approve or reject a pending borrowing
type DecideBorrowingRequest struct {
	Decision  Decision `json:"decision" binding:"required"`
	AdminNote *string  `json:"admin_note"`
}

func (r DecideBorrowingRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Decision,
			validation.Required.Error("decision is required"),
			validation.In(DecisionApprove, DecisionReject).Error("decision must be approve or reject"),
		),
		validation.Field(&r.AdminNote, validation.NilOrNotEmpty, validation.Length(0, 1000)),
	)
}

// ListBorrowingsRequest admin query parameters for listing borrowings
type ListBorrowingsRequest struct {
	UserID   string   `form:"user_id"`
	BookID   string   `form:"book_id"`
	Statuses []string `form:"status"`
	ActiveOn string   `form:"active_on"`
	From     string   `form:"from"`
	To       string   `form:"to"`
	Order    string   `form:"order"`
	Page     int      `form:"page"`
	Limit    int      `form:"limit"`
}

// ToQuery converts the raw query string values into a typed ListQuery
func (r ListBorrowingsRequest) ToQuery() (ListQuery, error) {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.By(uuidString)),
		validation.Field(&r.BookID, validation.By(uuidString)),
		validation.Field(&r.ActiveOn, validation.Date(DateLayout)),
		validation.Field(&r.From, validation.Date(DateLayout), validation.When(r.To != "", validation.Required)),
		validation.Field(&r.To, validation.Date(DateLayout), validation.When(r.From != "", validation.Required)),
	)
	if err != nil {
		return ListQuery{}, err
	}

	q := ListQuery{Order: ListOrder(r.Order), Page: r.Page, Limit: r.Limit}
	if r.UserID != "" {
		id := uuid.MustParse(r.UserID)
		q.UserID = &id
	}
	if r.BookID != "" {
		id := uuid.MustParse(r.BookID)
		q.BookID = &id
	}
	for _, s := range r.Statuses {
		q.Statuses = append(q.Statuses, Status(s))
	}
	if r.ActiveOn != "" {
		day, _ := ParseDate(r.ActiveOn)
		q.ActiveOn = &day
	}
	if r.From != "" {
		from, _ := ParseDate(r.From)
		to, _ := ParseDate(r.To)
		q.Window = &Interval{StartDate: from, EndDate: to}
	}

	q.Normalize()
	if err := q.Validate(); err != nil {
		return ListQuery{}, err
	}
	return q, nil
}

func uuidString(v interface{}) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return validation.NewError("validation_uuid", "must be a valid UUID")
	}
	return nil
}

// =====================================================
// RESPONSE DTOs
// =====================================================

// BorrowingResponse is the public shape of a borrowing
type BorrowingResponse struct {
	ID        uuid.UUID `json:"id"`
	BookID    uuid.UUID `json:"book_id"`
	UserID    uuid.UUID `json:"user_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Status    Status    `json:"status"`
	AdminNote *string   `json:"admin_note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToResponse(b *Borrowing) BorrowingResponse {
	return BorrowingResponse{
		ID:        b.ID,
		BookID:    b.BookID,
		UserID:    b.UserID,
		StartDate: b.Interval.StartDate.Format(DateLayout),
		EndDate:   b.Interval.EndDate.Format(DateLayout),
		Status:    b.Status,
		AdminNote: b.AdminNote,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func ToResponses(list []*Borrowing) []BorrowingResponse {
	out := make([]BorrowingResponse, 0, len(list))
	for _, b := range list {
		out = append(out, ToResponse(b))
	}
	return out
}

// BookingSlot is the public view of a booking: when, and in which state.
// Borrower and admin note stay private.
type BookingSlot struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    Status `json:"status"`
}

func ToBookingSlots(list []*Borrowing) []BookingSlot {
	out := make([]BookingSlot, 0, len(list))
	for _, b := range list {
		out = append(out, BookingSlot{
			StartDate: b.Interval.StartDate.Format(DateLayout),
			EndDate:   b.Interval.EndDate.Format(DateLayout),
			Status:    b.Status,
		})
	}
	return out
}

// AvailabilityResponse answers "can I get this book, and if not, when"
type AvailabilityResponse struct {
	BookID        uuid.UUID     `json:"book_id"`
	TotalCopies   int           `json:"total_copies"`
	Available     bool          `json:"available"`
	NextAvailable *string       `json:"next_available"` // YYYY-MM-DD or null
	Bookings      []BookingSlot `json:"bookings"`
}

// ListBorrowingsResponse paged admin list
type ListBorrowingsResponse struct {
	Borrowings []BorrowingResponse `json:"borrowings"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	Total      int                 `json:"total"`
}
