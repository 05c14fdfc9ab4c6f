package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound                 = errors.New("not found")
	ErrOutOfWindow              = errors.New("requested time is not covered by an active availability window")
	ErrCapacityExceeded         = errors.New("slot capacity exceeded")
	ErrAdvanceWindowExceeded    = errors.New("date is beyond the advance booking window")
	ErrInvalidTransition        = errors.New("invalid booking status transition")
	ErrCancellationWindowClosed = errors.New("cancellation window is closed")
	ErrConcurrentModification   = errors.New("booking was modified concurrently")
	ErrValidation               = errors.New("validation failed")
	ErrUnavailable              = errors.New("store unavailable")
)

// ValidationError collects per-field messages for a malformed request.
type ValidationError struct {
	fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{fields: make(map[string][]string)}
}

// Add records a message for a field and returns the receiver for chaining.
func (e *ValidationError) Add(field, msg string) *ValidationError {
	e.fields[field] = append(e.fields[field], msg)
	return e
}

// Fields returns the collected messages keyed by field name.
func (e *ValidationError) Fields() map[string][]string {
	return e.fields
}

// OrNil returns nil when nothing was recorded so callers can `return v.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.fields))
	for name := range e.fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.fields[name], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid is a shortcut for a single-field validation error.
func Invalid(field, msg string) error {
	return NewValidationError().Add(field, msg)
}

// AsValidationError extracts a ValidationError from an error chain.
func AsValidationError(err error) *ValidationError {
	var v *ValidationError
	if errors.As(err, &v) {
		return v
	}
	return nil
}

// Unavailable marks an infrastructure failure. The caller is expected to retry reads with backoff.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// Code is the stable machine-readable name of a domain error, used by transports.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrOutOfWindow):
		return "out_of_window"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrAdvanceWindowExceeded):
		return "advance_window_exceeded"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrCancellationWindowClosed):
		return "cancellation_window_closed"
	case errors.Is(err, ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
