package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookable/internal/domain"
	"bookable/internal/models"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message, Code: code})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrOutOfWindow),
		errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrAdvanceWindowExceeded),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrCancellationWindowClosed),
		errors.Is(err, domain.ErrConcurrentModification):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := statusFor(err)
	resp := errorResponse{Error: err.Error(), Code: domain.Code(err)}

	switch statusCode {
	case http.StatusBadRequest:
		if v := domain.AsValidationError(err); v != nil {
			resp.Fields = v.Fields()
		}
	case http.StatusServiceUnavailable:
		s.log.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Msg("store unavailable")
		resp.Error = "service temporarily unavailable"
	case http.StatusInternalServerError:
		s.log.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Msg("internal error")
		resp.Error = "internal error"
	}
	writeJSON(w, statusCode, resp)
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return domain.Invalid("body", "invalid JSON body")
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid(name, "must be a positive integer")
	}
	return id, nil
}

func queryID(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, domain.Invalid(name, "must be a positive integer")
	}
	return &id, nil
}

func queryDate(r *http.Request, name string, required bool) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		if required {
			return time.Time{}, domain.Invalid(name, "is required")
		}
		return time.Time{}, nil
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		return time.Time{}, domain.Invalid(name, "invalid date format; expected YYYY-MM-DD")
	}
	return date, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Invalid(name, "must be an integer")
	}
	return n, nil
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
