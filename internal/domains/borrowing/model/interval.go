package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar days
const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar day, expressed as UTC midnight.
// The day is taken from t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a calendar day
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected %s", s, DateLayout)
	}
	return t, nil
}

// NextDay returns the calendar day after d
func NextDay(d time.Time) time.Time {
	return DateOf(d).AddDate(0, 0, 1)
}

// Interval is an inclusive range of calendar days
type Interval struct {
	StartDate time.Time
	EndDate   time.Time
}

// NewInterval normalizes both bounds to calendar days. It does not validate ordering.
func NewInterval(start, end time.Time) Interval {
	return Interval{StartDate: DateOf(start), EndDate: DateOf(end)}
}

// Overlaps uses inclusive bounds: [s1,e1] and [s2,e2] overlap iff s1 <= e2 and s2 <= e1
func (i Interval) Overlaps(other Interval) bool {
	return !i.StartDate.After(other.EndDate) && !other.StartDate.After(i.EndDate)
}

// Contains reports whether day falls inside the interval, bounds included
func (i Interval) Contains(day time.Time) bool {
	d := DateOf(day)
	return !d.Before(i.StartDate) && !d.After(i.EndDate)
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s,%s]", i.StartDate.Format(DateLayout), i.EndDate.Format(DateLayout))
}

type intervalJSON struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (i Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal(intervalJSON{
		StartDate: i.StartDate.Format(DateLayout),
		EndDate:   i.EndDate.Format(DateLayout),
	})
}

func (i *Interval) UnmarshalJSON(data []byte) error {
	var raw intervalJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := ParseDate(raw.StartDate)
	if err != nil {
		return err
	}
	end, err := ParseDate(raw.EndDate)
	if err != nil {
		return err
	}
	*i = Interval{StartDate: start, EndDate: end}
	return nil
}
