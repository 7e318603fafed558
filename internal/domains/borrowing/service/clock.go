package service

import (
	"time"

	"library-backend/internal/domains/borrowing/model"
)

// Clock supplies "now" and the calendar day the library considers today
type Clock interface {
	Now() time.Time
	Today() time.Time
}

type systemClock struct {
	loc *time.Location
}

// SystemClock reads the wall clock; today is computed in loc
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().UTC()
}

func (c systemClock) Today() time.Time {
	return model.DateOf(time.Now().In(c.loc))
}

// FixedClock always answers with t. Used in tests and replays.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time {
	return c.T
}

func (c FixedClock) Today() time.Time {
	return model.DateOf(c.T)
}
