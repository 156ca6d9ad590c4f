package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced job or work log entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional write lost a race against another writer.
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition is returned for a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrValidation is returned before any write when input is malformed.
	ErrValidation = errors.New("validation failed")
	// ErrStoreUnavailable marks transient store failures (busy, locked, closed).
	ErrStoreUnavailable = errors.New("store unavailable")
)

// TransitionError reports an illegal status change on a job.
type TransitionError struct {
	JobID     string
	Current   JobStatus
	Requested JobStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("job %s: cannot transition from %s to %s", e.JobID, e.Current, e.Requested)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ValidationError reports a rejected field value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConflictError carries the state observed when a conditional write was rejected.
type ConflictError struct {
	Entity string
	ID     string
	Detail string
}

func (e *ConflictError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s %s: concurrent modification", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s %s: concurrent modification (%s)", e.Entity, e.ID, e.Detail)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
