package model

import (
	"testing"
	"time"
)

func intp(n int) *int { return &n }

func TestWindowValidate(t *testing.T) {
	date := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

	valid := AvailabilityWindow{Weekday: intp(0), StartMinute: 540, EndMinute: 1020, Capacity: 1, Timezone: "UTC"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid window, got %v", err)
	}

	cases := []struct {
		name string
		w    AvailabilityWindow
	}{
		{"both weekday and date", AvailabilityWindow{Weekday: intp(0), Date: &date, StartMinute: 540, EndMinute: 1020, Capacity: 1, Timezone: "UTC"}},
		{"neither weekday nor date", AvailabilityWindow{StartMinute: 540, EndMinute: 1020, Capacity: 1, Timezone: "UTC"}},
		{"weekday out of range", AvailabilityWindow{Weekday: intp(7), StartMinute: 540, EndMinute: 1020, Capacity: 1, Timezone: "UTC"}},
		{"end before start", AvailabilityWindow{Weekday: intp(0), StartMinute: 1020, EndMinute: 540, Capacity: 1, Timezone: "UTC"}},
		{"zero capacity", AvailabilityWindow{Weekday: intp(0), StartMinute: 540, EndMinute: 1020, Timezone: "UTC"}},
		{"bad timezone", AvailabilityWindow{Weekday: intp(0), StartMinute: 540, EndMinute: 1020, Capacity: 1, Timezone: "Mars/Olympus"}},
	}
	for _, c := range cases {
		if err := c.w.Validate(); err == nil {
			t.Errorf("%s: expected validation failure", c.name)
		}
	}
}

func TestMondayIndexed(t *testing.T) {
	if got := MondayIndexed(time.Monday); got != 0 {
		t.Fatalf("Monday should be 0, got %d", got)
	}
	if got := MondayIndexed(time.Sunday); got != 6 {
		t.Fatalf("Sunday should be 6, got %d", got)
	}
	if got := MondayIndexed(time.Wednesday); got != 2 {
		t.Fatalf("Wednesday should be 2, got %d", got)
	}
}

func TestWindowBounds_Timezone(t *testing.T) {
	w := AvailabilityWindow{
		Weekday:     intp(2),
		StartMinute: 9 * 60,
		EndMinute:   17 * 60,
		Capacity:    1,
		Timezone:    "America/New_York",
	}
	date := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

	start, end, err := w.Bounds(date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// EST is UTC-5 in January.
	if !start.Equal(time.Date(2026, 1, 28, 14, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 14:00 UTC start, got %s", start.UTC().Format(time.RFC3339))
	}
	if !end.Equal(time.Date(2026, 1, 28, 22, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 22:00 UTC end, got %s", end.UTC().Format(time.RFC3339))
	}
}
