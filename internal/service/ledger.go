package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookable/internal/domain"
	"bookable/internal/events"
	"bookable/internal/metrics"
	"bookable/internal/models"

	"github.com/rs/zerolog"
)

// CreateBookingRequest carries the caller's input for a new booking.
type CreateBookingRequest struct {
	ServiceID         int64            `json:"service_id"`
	StaffMemberID     *int64           `json:"staff_member_id,omitempty"`
	Date              string           `json:"date"`
	Time              models.ClockTime `json:"time"`
	ParticipantsCount int              `json:"participants_count"`
	CustomerName      string           `json:"customer_name"`
	CustomerPhone     string           `json:"customer_phone,omitempty"`
	Comment           string           `json:"comment,omitempty"`
}

// transitions lists the allowed moves of the booking state machine.
var transitions = map[string][]string{
	models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusCompleted, models.StatusCancelled, models.StatusNoShow},
}

func canTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// BookingLedger is the only writer of bookings.
type BookingLedger struct {
	catalog  *CatalogService
	calendar WindowSource
	bookings domain.BookingStore
	cache    domain.SlotCache
	eventBus domain.EventPublisher
	clock    domain.Clock
	logger   *zerolog.Logger
}

func NewBookingLedger(
	catalog *CatalogService,
	calendar WindowSource,
	bookings domain.BookingStore,
	cache domain.SlotCache,
	eventBus domain.EventPublisher,
	clock domain.Clock,
	logger *zerolog.Logger,
) *BookingLedger {
	if clock == nil {
		clock = SystemClock{}
	}
	return &BookingLedger{
		catalog:  catalog,
		calendar: calendar,
		bookings: bookings,
		cache:    cache,
		eventBus: eventBus,
		clock:    clock,
		logger:   logger,
	}
}

func (l *BookingLedger) Get(ctx context.Context, id int64) (*models.Booking, error) {
	return l.bookings.GetBooking(ctx, id)
}

func (l *BookingLedger) List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, domain.Invalid("to", "must not be before from")
	}
	for _, status := range filter.Statuses {
		if !models.IsActiveStatus(status) && !models.IsTerminalStatus(status) {
			return nil, domain.Invalid("status", fmt.Sprintf("unknown status %q", status))
		}
	}
	return l.bookings.ListBookings(ctx, filter)
}

func validateCreate(req CreateBookingRequest) (time.Time, error) {
	v := domain.NewValidationError()
	if req.ServiceID <= 0 {
		v.Add("service_id", "is required")
	}
	if req.ParticipantsCount < 1 {
		v.Add("participants_count", "must be at least 1")
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		v.Add("date", "must be YYYY-MM-DD")
	}
	if req.Time >= models.EndOfDay {
		v.Add("time", "must be before 24:00")
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		v.Add("customer_name", "is required")
	}
	if len(req.Comment) > models.MaxReasonLength {
		v.Add("comment", fmt.Sprintf("must be at most %d characters", models.MaxReasonLength))
	}
	return date, v.OrNil()
}

// Create validates the request and inserts the booking. Capacity is re-checked
// by the store in the same transaction as the insert.
func (l *BookingLedger) Create(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	booking, err := l.create(ctx, req)
	if err != nil {
		metrics.IncRejection(domain.Code(err))
		l.logger.Info().Err(err).Int64("service_id", req.ServiceID).Str("date", req.Date).
			Str("time", req.Time.String()).Int("participants", req.ParticipantsCount).Msg("booking rejected")
		return nil, err
	}
	return booking, nil
}

func (l *BookingLedger) create(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	date, err := validateCreate(req)
	if err != nil {
		return nil, err
	}

	svc, err := l.catalog.ActiveService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if err := l.catalog.ResolveStaff(ctx, svc, req.StaffMemberID); err != nil {
		return nil, err
	}

	loc := l.catalog.Location(svc)
	now := l.clock.Now().In(loc)
	if !req.Time.On(date, loc).After(now) {
		return nil, domain.Invalid("time", "slot has already started")
	}
	if svc.AdvanceBookingDays > 0 {
		lastDay := models.DateOnly(now).AddDate(0, 0, svc.AdvanceBookingDays)
		if date.After(lastDay) {
			return nil, fmt.Errorf("%w: latest bookable date is %s", domain.ErrAdvanceWindowExceeded, lastDay.Format(models.DateFormat))
		}
	}

	windows, err := l.calendar.WindowsFor(ctx, svc.ID, models.DayOfWeek(date), req.StaffMemberID)
	if err != nil {
		return nil, err
	}
	covered := false
	for _, w := range windows {
		if w.Contains(req.Time) {
			covered = true
			break
		}
	}
	if !covered {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrOutOfWindow, req.Date, req.Time)
	}

	status := models.StatusConfirmed
	if svc.RequiresApproval {
		status = models.StatusPending
	}

	booking := &models.Booking{
		ServiceID:         svc.ID,
		StaffMemberID:     req.StaffMemberID,
		Date:              date,
		Time:              req.Time,
		ParticipantsCount: req.ParticipantsCount,
		Status:            status,
		CustomerName:      strings.TrimSpace(req.CustomerName),
		CustomerPhone:     strings.TrimSpace(req.CustomerPhone),
		Comment:           req.Comment,
	}
	limits := models.CapacityLimits{MaxParticipants: svc.MaxParticipants, MaxBookingsPerDay: svc.MaxBookingsPerDay}
	if err := l.bookings.CreateBookingWithLock(ctx, booking, limits); err != nil {
		return nil, err
	}

	l.logger.Info().Int64("booking_id", booking.ID).Int64("service_id", svc.ID).Str("status", status).Msg("booking created")
	l.afterChange(ctx, svc, booking, events.EventBookingCreated, "")
	return booking, nil
}

func (l *BookingLedger) Confirm(ctx context.Context, id int64) (*models.Booking, error) {
	return l.transition(ctx, id, models.StatusConfirmed, "", nil)
}

// Cancel frees the booking's capacity while the service's cancellation policy allows it.
func (l *BookingLedger) Cancel(ctx context.Context, id int64, reason string) (*models.Booking, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) > models.MaxReasonLength {
		return nil, domain.Invalid("reason", fmt.Sprintf("must be at most %d characters", models.MaxReasonLength))
	}
	return l.transition(ctx, id, models.StatusCancelled, reason, func(svc *models.ServiceDefinition, b *models.Booking) error {
		if !svc.AllowCancellation {
			return fmt.Errorf("%w: service does not allow cancellation", domain.ErrCancellationWindowClosed)
		}
		if svc.CancellationDeadlineHours > 0 {
			loc := l.catalog.Location(svc)
			deadline := l.clock.Now().Add(time.Duration(svc.CancellationDeadlineHours) * time.Hour)
			if !deadline.Before(b.StartsAt(loc)) {
				return fmt.Errorf("%w: cancellations close %dh before start", domain.ErrCancellationWindowClosed, svc.CancellationDeadlineHours)
			}
		}
		return nil
	})
}

func (l *BookingLedger) Complete(ctx context.Context, id int64) (*models.Booking, error) {
	return l.transition(ctx, id, models.StatusCompleted, "", func(svc *models.ServiceDefinition, b *models.Booking) error {
		if l.clock.Now().Before(b.StartsAt(l.catalog.Location(svc))) {
			l.logger.Warn().Int64("booking_id", b.ID).Msg("booking completed before its scheduled start")
		}
		return nil
	})
}

func (l *BookingLedger) MarkNoShow(ctx context.Context, id int64) (*models.Booking, error) {
	return l.transition(ctx, id, models.StatusNoShow, "", nil)
}

type transitionGuard func(svc *models.ServiceDefinition, b *models.Booking) error

func (l *BookingLedger) transition(ctx context.Context, id int64, to, reason string, guard transitionGuard) (*models.Booking, error) {
	booking, err := l.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(booking.Status, to) {
		err := fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, booking.Status, to)
		metrics.IncRejection(domain.Code(err))
		return nil, err
	}

	svc, err := l.catalog.GetService(ctx, booking.ServiceID)
	if err != nil {
		return nil, err
	}
	if guard != nil {
		if err := guard(svc, booking); err != nil {
			metrics.IncRejection(domain.Code(err))
			return nil, err
		}
	}

	from := booking.Status
	if err := l.bookings.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, from, to, reason); err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			metrics.IncRejection(domain.Code(err))
		}
		return nil, err
	}

	booking.Status = to
	booking.Version++
	booking.UpdatedAt = l.clock.Now().UTC()
	if reason != "" {
		booking.CancellationReason = reason
	}

	l.logger.Info().Int64("booking_id", booking.ID).Str("from", from).Str("to", to).Msg("booking status changed")
	l.afterChange(ctx, svc, booking, eventFor(to), from)
	return booking, nil
}

func eventFor(status string) string {
	switch status {
	case models.StatusConfirmed:
		return events.EventBookingConfirmed
	case models.StatusCancelled:
		return events.EventBookingCanceled
	case models.StatusCompleted:
		return events.EventBookingCompleted
	case models.StatusNoShow:
		return events.EventBookingNoShow
	default:
		return events.EventBookingCreated
	}
}

func (l *BookingLedger) afterChange(ctx context.Context, svc *models.ServiceDefinition, b *models.Booking, eventType, previous string) {
	if l.cache != nil {
		if err := l.cache.InvalidateDate(ctx, b.ServiceID, b.Date); err != nil {
			l.logger.Warn().Err(err).Int64("booking_id", b.ID).Msg("slot cache invalidation failed")
		}
	}
	l.publishEvent(eventType, svc, b, previous)
}

func (l *BookingLedger) publishEvent(eventType string, svc *models.ServiceDefinition, b *models.Booking, previous string) {
	if l.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:         b.ID,
		ServiceID:         b.ServiceID,
		ServiceName:       svc.Name,
		StaffMemberID:     b.StaffMemberID,
		Date:              b.Date.Format(models.DateFormat),
		Time:              b.Time.String(),
		ParticipantsCount: b.ParticipantsCount,
		Status:            b.Status,
		PreviousStatus:    previous,
		Reason:            b.CancellationReason,
		CustomerName:      b.CustomerName,
	}

	if err := l.eventBus.PublishJSON(eventType, payload); err != nil {
		l.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", b.ID).Msg("publish event error")
	}
}
