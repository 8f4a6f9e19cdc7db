package model

import "time"

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusDone      AppointmentStatus = "done"
	StatusCanceled  AppointmentStatus = "canceled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Active reports whether the status consumes window capacity.
func (s AppointmentStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal statuses release capacity and accept no further transitions.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusDone || s == StatusCanceled || s == StatusNoShow
}

// CanTransitionTo enforces the lifecycle graph:
// pending -> confirmed -> done; pending|confirmed -> canceled; confirmed -> no_show.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCanceled
	case StatusConfirmed:
		return next == StatusDone || next == StatusCanceled || next == StatusNoShow
	default:
		return false
	}
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDone, StatusCanceled, StatusNoShow:
		return true
	}
	return false
}

// Appointment is a booked slot. Appointments are never deleted; canceled ones
// are retained for audit and analytics.
type Appointment struct {
	ID         string
	TenantID   string
	CustomerID string
	ServiceID  string
	VariantID  string // empty when no variant was requested
	StartAt    time.Time
	EndAt      time.Time
	Status     AppointmentStatus
	Notes      string
	CreatedAt  time.Time
	CanceledAt *time.Time
}

// Overlaps reports strict interval overlap with [start, end).
func (a Appointment) Overlaps(start, end time.Time) bool {
	return a.StartAt.Before(end) && a.EndAt.After(start)
}
