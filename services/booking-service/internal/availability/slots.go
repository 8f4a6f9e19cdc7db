package availability

import (
	"time"

	"github.com/danielvegam/citaflow/services/booking-service/internal/model"
)

// Candidate is a fixed-length slot interval before capacity filtering.
type Candidate struct {
	Start time.Time
	End   time.Time
}

// Candidates enumerates consecutive non-overlapping slots of length duration
// covering the window localized on date, keeping only those fully inside
// [rangeStart, rangeEnd]. Slot starts advance by exactly duration each step:
// a fixed-stride scan, not a sliding window.
func Candidates(w model.AvailabilityWindow, date time.Time, duration time.Duration, rangeStart, rangeEnd time.Time) ([]Candidate, error) {
	if duration <= 0 {
		return nil, nil
	}
	windowStart, windowEnd, err := w.Bounds(date)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(duration) {
		end := t.Add(duration)
		if t.Before(rangeStart) || end.After(rangeEnd) {
			continue
		}
		out = append(out, Candidate{Start: t, End: end})
	}
	return out, nil
}
