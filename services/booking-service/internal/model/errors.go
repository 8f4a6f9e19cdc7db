package model

import "errors"

var (
	// ErrNotFound covers services, variants, customers, and appointments that
	// are absent or not owned by the caller's tenant.
	ErrNotFound = errors.New("not found")

	// ErrConcurrencyConflict is reported by the storage layer when a commit
	// loses a race (serialization failure, deadlock victim, constraint
	// conflict). The orchestrator retries once before surfacing a capacity
	// miss to the caller.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// ValidationError carries a human-readable reason the caller can act on,
// typically by requesting alternative slots.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func Invalid(reason string) error {
	return &ValidationError{Reason: reason}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
