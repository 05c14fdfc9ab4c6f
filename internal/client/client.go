package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bookable/internal/models"
	"bookable/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Client talks to the bookable HTTP API. Reads are retried, mutations never are.
type Client struct {
	baseURL string
	http    *http.Client
	apiKey  string
	extra   string
	retry   RetryPolicy
	logger  zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option { return func(cl *Client) { cl.http = c } }

func WithRetryPolicy(p RetryPolicy) Option { return func(cl *Client) { cl.retry = p } }

func WithLogger(l *zerolog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l.With().Str("component", "client").Logger()
		}
	}
}

// WithAPIKey sets the key pair sent in the x-api-key and x-api-extra headers.
func WithAPIKey(key, extra string) Option {
	return func(cl *Client) {
		cl.apiKey = key
		cl.extra = extra
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		retry:   DefaultRetryPolicy,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListServices(ctx context.Context) ([]models.ServiceDefinition, error) {
	var out struct {
		Services []models.ServiceDefinition `json:"services"`
	}
	err := c.get(ctx, "/api/v1/services", nil, &out)
	return out.Services, err
}

func (c *Client) GetService(ctx context.Context, id int64) (*models.ServiceDefinition, error) {
	var out models.ServiceDefinition
	if err := c.get(ctx, fmt.Sprintf("/api/v1/services/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListSlots(ctx context.Context, serviceID int64, staffID *int64, date time.Time) ([]models.Slot, error) {
	q := url.Values{"date": {date.Format(models.DateFormat)}}
	addStaff(q, staffID)
	var out struct {
		Slots []models.Slot `json:"slots"`
	}
	err := c.get(ctx, fmt.Sprintf("/api/v1/services/%d/slots", serviceID), q, &out)
	return out.Slots, err
}

func (c *Client) CheckSlot(ctx context.Context, serviceID int64, staffID *int64, date time.Time, at models.ClockTime) (*models.SlotCheck, error) {
	q := url.Values{"date": {date.Format(models.DateFormat)}, "time": {at.String()}}
	addStaff(q, staffID)
	var out models.SlotCheck
	if err := c.get(ctx, fmt.Sprintf("/api/v1/services/%d/check", serviceID), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAvailability(ctx context.Context, serviceID int64, staffID *int64, start time.Time, days int) ([]models.DayAvailability, error) {
	q := url.Values{"start": {start.Format(models.DateFormat)}, "days": {strconv.Itoa(days)}}
	addStaff(q, staffID)
	var out struct {
		Days []models.DayAvailability `json:"days"`
	}
	err := c.get(ctx, fmt.Sprintf("/api/v1/services/%d/availability", serviceID), q, &out)
	return out.Days, err
}

func (c *Client) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	var out models.Booking
	if err := c.get(ctx, fmt.Sprintf("/api/v1/bookings/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateBooking(ctx context.Context, req service.CreateBookingRequest) (*models.Booking, error) {
	var out models.Booking
	if err := c.send(ctx, http.MethodPost, "/api/v1/bookings", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ConfirmBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return c.transition(ctx, id, "confirm", nil)
}

func (c *Client) CancelBooking(ctx context.Context, id int64, reason string) (*models.Booking, error) {
	return c.transition(ctx, id, "cancel", map[string]string{"reason": reason})
}

func (c *Client) CompleteBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return c.transition(ctx, id, "complete", nil)
}

func (c *Client) MarkNoShow(ctx context.Context, id int64) (*models.Booking, error) {
	return c.transition(ctx, id, "no-show", nil)
}

func (c *Client) transition(ctx context.Context, id int64, action string, body any) (*models.Booking, error) {
	var out models.Booking
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/%s", id, action), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func addStaff(q url.Values, staffID *int64) {
	if staffID != nil {
		q.Set("staff_id", strconv.FormatInt(*staffID, 10))
	}
}

// get performs an idempotent read, retrying on 503 and transport errors.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.retry.wait(ctx, attempt); err != nil {
				return err
			}
		}

		lastErr = c.do(ctx, http.MethodGet, target, nil, out)
		if lastErr == nil || !retryable(ctx, lastErr) {
			return lastErr
		}
		c.logger.Debug().Err(lastErr).Str("path", path).Int("attempt", attempt+1).Msg("retrying read")
	}
	return lastErr
}

// send performs a single mutation attempt.
func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = raw
	}
	return c.do(ctx, method, c.baseURL+path, payload, out)
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("x-api-extra", c.extra)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type transportError struct {
	err error
}

func (e *transportError) Error() string { return "transport: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.retryable()
	}
	var te *transportError
	return errors.As(err, &te)
}
