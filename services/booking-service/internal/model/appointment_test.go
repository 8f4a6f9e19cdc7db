package model

import (
	"testing"
	"time"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to AppointmentStatus
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCanceled, true},
		{StatusPending, StatusDone, false},
		{StatusPending, StatusNoShow, false},
		{StatusConfirmed, StatusDone, true},
		{StatusConfirmed, StatusCanceled, true},
		{StatusConfirmed, StatusNoShow, true},
		{StatusConfirmed, StatusPending, false},
		{StatusDone, StatusConfirmed, false},
		{StatusCanceled, StatusPending, false},
		{StatusNoShow, StatusConfirmed, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.want {
			t.Errorf("%s -> %s: expected %v, got %v", c.from, c.to, c.want, got)
		}
	}
}

func TestStatusActive(t *testing.T) {
	for _, s := range []AppointmentStatus{StatusPending, StatusConfirmed} {
		if !s.Active() {
			t.Errorf("%s should consume capacity", s)
		}
	}
	for _, s := range []AppointmentStatus{StatusDone, StatusCanceled, StatusNoShow} {
		if s.Active() {
			t.Errorf("%s should not consume capacity", s)
		}
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestOverlaps_Strict(t *testing.T) {
	base := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	appt := Appointment{StartAt: base, EndAt: base.Add(time.Hour)}

	if !appt.Overlaps(base.Add(30*time.Minute), base.Add(90*time.Minute)) {
		t.Error("expected overlap with a straddling interval")
	}
	if !appt.Overlaps(base, base.Add(time.Hour)) {
		t.Error("expected overlap with the identical interval")
	}
	// Touching endpoints do not overlap.
	if appt.Overlaps(base.Add(time.Hour), base.Add(2*time.Hour)) {
		t.Error("adjacent interval after should not overlap")
	}
	if appt.Overlaps(base.Add(-time.Hour), base) {
		t.Error("adjacent interval before should not overlap")
	}
}
