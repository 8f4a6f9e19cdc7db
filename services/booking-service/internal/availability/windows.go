package availability

import (
	"time"

	"github.com/danielvegam/citaflow/services/booking-service/internal/model"
)

// ForDate returns every window applicable to the given calendar date:
// specific-date windows for that date plus recurring windows for that
// weekday. Both kinds can co-exist and are both honored; no precedence rule
// is applied between them.
func ForDate(windows []model.AvailabilityWindow, date time.Time) []model.AvailabilityWindow {
	var out []model.AvailabilityWindow
	for _, w := range windows {
		if w.AppliesTo(date) {
			out = append(out, w)
		}
	}
	return out
}

// FindCovering returns the first window whose localized bounds on one of the
// candidate dates fully contain [start, end]. Specific-date windows are
// checked before recurring ones so that covering-window selection is
// deterministic when both kinds apply.
func FindCovering(windows []model.AvailabilityWindow, dates []time.Time, start, end time.Time) (model.AvailabilityWindow, bool) {
	for _, specificFirst := range []bool{true, false} {
		for _, date := range dates {
			for _, w := range windows {
				if (w.Date != nil) != specificFirst {
					continue
				}
				if !w.AppliesTo(date) {
					continue
				}
				if w.Contains(date, start, end) {
					return w, true
				}
			}
		}
	}
	return model.AvailabilityWindow{}, false
}

// DatesAround lists the UTC calendar date of t plus one day either side.
// Windows localize their clock times in their own timezone, so the local
// date that covers an instant can differ from its UTC date.
func DatesAround(t time.Time) []time.Time {
	day := truncateToDate(t.UTC())
	return []time.Time{day.AddDate(0, 0, -1), day, day.AddDate(0, 0, 1)}
}

// Days lists each UTC calendar date from from to to inclusive, extended one
// day either side for the same timezone-skew reason as DatesAround.
func Days(from, to time.Time) []time.Time {
	first := truncateToDate(from.UTC()).AddDate(0, 0, -1)
	last := truncateToDate(to.UTC()).AddDate(0, 0, 1)

	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
