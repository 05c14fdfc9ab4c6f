package client

import (
	"fmt"
	"net/http"

	"bookable/internal/domain"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int                 `json:"-"`
	Code       string              `json:"code"`
	Message    string              `json:"error"`
	Fields     map[string][]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api %d: %s", e.StatusCode, e.Message)
}

var sentinels = map[string]error{
	"validation_error":           domain.ErrValidation,
	"not_found":                  domain.ErrNotFound,
	"out_of_window":              domain.ErrOutOfWindow,
	"capacity_exceeded":          domain.ErrCapacityExceeded,
	"advance_window_exceeded":    domain.ErrAdvanceWindowExceeded,
	"invalid_transition":         domain.ErrInvalidTransition,
	"cancellation_window_closed": domain.ErrCancellationWindowClosed,
	"concurrent_modification":    domain.ErrConcurrentModification,
	"unavailable":                domain.ErrUnavailable,
}

// Unwrap lets callers match API errors with errors.Is against the domain sentinels.
func (e *APIError) Unwrap() error {
	if err, ok := sentinels[e.Code]; ok {
		return err
	}
	if e.StatusCode == http.StatusServiceUnavailable {
		return domain.ErrUnavailable
	}
	return nil
}

func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusServiceUnavailable
}
