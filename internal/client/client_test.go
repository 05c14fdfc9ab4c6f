package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"bookable/internal/domain"
	"bookable/internal/models"
	"bookable/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRetryPolicy_NextDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}
	assert.Equal(t, 100*time.Millisecond, p.NextDelay(0))
	assert.Equal(t, 100*time.Millisecond, p.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, p.NextDelay(2))
	assert.Equal(t, 300*time.Millisecond, p.NextDelay(3))
	assert.Equal(t, time.Second, RetryPolicy{}.NextDelay(1))
}

func TestClient_ReadsRetryOnUnavailable(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/services/1/slots", r.URL.Path)
		assert.Equal(t, "2026-01-05", r.URL.Query().Get("date"))
		assert.Equal(t, "7", r.URL.Query().Get("staff_id"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "busy", "code": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"slots": []models.Slot{{Time: models.MustParseClockTime("09:00"), AvailableSpots: 1}}})
	}))
	defer ts.Close()

	c := New(ts.URL, WithRetryPolicy(fastRetry))
	staff := int64(7)
	slots, err := c.ListSlots(context.Background(), 1, &staff, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "09:00:00", slots[0].Time.String())
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ReadsGiveUp(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "busy", "code": "unavailable"})
	}))
	defer ts.Close()

	c := New(ts.URL, WithRetryPolicy(fastRetry))
	_, err := c.GetBooking(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, int32(4), calls.Load())
}

func TestClient_NoRetryOnClientErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "booking 1: not found", "code": "not_found"})
	}))
	defer ts.Close()

	c := New(ts.URL, WithRetryPolicy(fastRetry))
	_, err := c.GetBooking(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_MutationsNeverRetry(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		assert.Equal(t, "e", r.Header.Get("x-api-extra"))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "busy", "code": "unavailable"})
	}))
	defer ts.Close()

	c := New(ts.URL, WithRetryPolicy(fastRetry), WithAPIKey("k", "e"))
	_, err := c.CreateBooking(context.Background(), service.CreateBookingRequest{ServiceID: 1})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ConflictCodes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/bookings":
			writeJSON(w, http.StatusConflict, map[string]string{"error": "slot capacity exceeded", "code": "capacity_exceeded"})
		case "/api/v1/bookings/3/cancel":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "sick", body["reason"])
			writeJSON(w, http.StatusConflict, map[string]string{"error": "closed", "code": "cancellation_window_closed"})
		default:
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": "validation failed", "code": "validation_error",
				"fields": map[string][]string{"date": {"is required"}},
			})
		}
	}))
	defer ts.Close()

	c := New(ts.URL)
	ctx := context.Background()

	_, err := c.CreateBooking(ctx, service.CreateBookingRequest{ServiceID: 1})
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	_, err = c.CancelBooking(ctx, 3, "sick")
	assert.ErrorIs(t, err, domain.ErrCancellationWindowClosed)

	_, err = c.GetAvailability(ctx, 1, nil, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), 3)
	require.ErrorIs(t, err, domain.ErrValidation)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, []string{"is required"}, apiErr.Fields["date"])
}

func TestClient_TransportErrorRetried(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	c := New(url, WithRetryPolicy(RetryPolicy{MaxRetries: 1, InitialDelay: time.Millisecond}))
	_, err := c.ListServices(context.Background())
	var te *transportError
	assert.ErrorAs(t, err, &te)
}

func TestClient_ContextCancelStopsRetry(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "busy", "code": "unavailable"})
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	c := New(ts.URL, WithRetryPolicy(RetryPolicy{MaxRetries: 10, InitialDelay: time.Second}))
	_, err := c.GetService(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
