package model

import (
	"errors"
	"time"
)

// AvailabilityWindow defines when a service accepts bookings. A window is
// either recurring (bound to a weekday, Monday=0) or specific (bound to one
// calendar date), never both. Both kinds can apply to the same day; the
// resolver returns their union without precedence.
type AvailabilityWindow struct {
	ID          string
	TenantID    string
	ServiceID   string
	Weekday     *int       // 0=Monday .. 6=Sunday
	Date        *time.Time // calendar date, midnight UTC
	StartMinute int        // minutes from local midnight
	EndMinute   int
	Capacity    int
	Timezone    string // IANA name, e.g. America/Argentina/Buenos_Aires
}

func (w AvailabilityWindow) Validate() error {
	if (w.Weekday == nil) == (w.Date == nil) {
		return errors.New("exactly one of weekday or date must be set")
	}
	if w.Weekday != nil && (*w.Weekday < 0 || *w.Weekday > 6) {
		return errors.New("weekday must be in [0,6]")
	}
	if w.EndMinute <= w.StartMinute {
		return errors.New("end must be after start")
	}
	if w.StartMinute < 0 || w.EndMinute > 24*60 {
		return errors.New("window times must fall within one day")
	}
	if w.Capacity < 1 {
		return errors.New("capacity must be at least 1")
	}
	if _, err := time.LoadLocation(w.Timezone); err != nil {
		return errors.New("unknown timezone")
	}
	return nil
}

// AppliesTo reports whether the window is open on the given calendar date
// (only year, month, and day of date are considered).
func (w AvailabilityWindow) AppliesTo(date time.Time) bool {
	if w.Date != nil {
		return sameDate(*w.Date, date)
	}
	if w.Weekday != nil {
		return *w.Weekday == MondayIndexed(date.Weekday())
	}
	return false
}

// Bounds localizes the window's clock times on the given calendar date using
// the window's own timezone and returns absolute instants.
func (w AvailabilityWindow) Bounds(date time.Time) (start, end time.Time, err error) {
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	y, m, d := date.Date()
	start = time.Date(y, m, d, w.StartMinute/60, w.StartMinute%60, 0, 0, loc)
	end = time.Date(y, m, d, w.EndMinute/60, w.EndMinute%60, 0, 0, loc)
	return start, end, nil
}

// Contains reports whether [start, end] lies fully inside the window
// localized on date.
func (w AvailabilityWindow) Contains(date time.Time, start, end time.Time) bool {
	ws, we, err := w.Bounds(date)
	if err != nil {
		return false
	}
	return !start.Before(ws) && !end.After(we)
}

// MondayIndexed converts Go's Sunday-based weekday to the Monday=0 convention
// used by availability windows.
func MondayIndexed(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Slot is a candidate bookable interval derived from a window.
type Slot struct {
	Start          time.Time
	End            time.Time
	CapacityLeft   int
	WindowID       string
	WindowCapacity int
}
