package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// ListOrder enumerates the supported orderings for borrowing lists
type ListOrder string

const (
	OrderCreatedDesc ListOrder = "created_desc"
	OrderStartAsc    ListOrder = "start_asc"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ListQuery is the fixed set of optional filters a borrowing list accepts.
// Nil / empty fields are not applied.
type ListQuery struct {
	UserID   *uuid.UUID
	BookID   *uuid.UUID
	Statuses []Status

	// ActiveOn keeps records whose interval contains the day
	ActiveOn *time.Time

	// Window keeps records overlapping the interval (inclusive)
	Window *Interval

	Order ListOrder
	Page  int
	Limit int
}

// Normalize fills paging and ordering defaults
func (q *ListQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	if q.Order == "" {
		q.Order = OrderCreatedDesc
	}
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

func (q ListQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Statuses, validation.Each(validation.By(func(v interface{}) error {
			if s, _ := v.(Status); !s.IsValid() {
				return validation.NewError("validation_status", "unknown status")
			}
			return nil
		}))),
		validation.Field(&q.Order, validation.In(OrderCreatedDesc, OrderStartAsc)),
		validation.Field(&q.Window, validation.By(func(v interface{}) error {
			w, _ := v.(*Interval)
			if w != nil && w.EndDate.Before(w.StartDate) {
				return validation.NewError("validation_window", "window end must not be before start")
			}
			return nil
		})),
	)
}

// Matches applies the filters in memory. Used by the in-memory store.
func (q ListQuery) Matches(b *Borrowing) bool {
	if q.UserID != nil && b.UserID != *q.UserID {
		return false
	}
	if q.BookID != nil && b.BookID != *q.BookID {
		return false
	}
	if len(q.Statuses) > 0 && !containsStatus(q.Statuses, b.Status) {
		return false
	}
	if q.ActiveOn != nil && !b.Interval.Contains(*q.ActiveOn) {
		return false
	}
	if q.Window != nil && !b.Interval.Overlaps(*q.Window) {
		return false
	}
	return true
}

func containsStatus(list []Status, s Status) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}
