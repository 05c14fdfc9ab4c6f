package service

import (
	"context"
	"fmt"

	"bookable/internal/domain"
	"bookable/internal/events"
	"bookable/internal/models"

	"github.com/rs/zerolog"
)

// CalendarService manages recurring availability windows.
type CalendarService struct {
	store          domain.CalendarStore
	bookings       domain.BookingStore
	catalog        *CatalogService
	cache          domain.SlotCache
	eventBus       domain.EventPublisher
	clock          domain.Clock
	rejectOverlaps bool
	logger         *zerolog.Logger
}

type CalendarOptions struct {
	// RejectOverlaps refuses windows that intersect another active window of the same scope.
	RejectOverlaps bool
}

func NewCalendarService(
	store domain.CalendarStore,
	bookings domain.BookingStore,
	catalog *CatalogService,
	cache domain.SlotCache,
	eventBus domain.EventPublisher,
	clock domain.Clock,
	opts CalendarOptions,
	logger *zerolog.Logger,
) *CalendarService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &CalendarService{
		store:          store,
		bookings:       bookings,
		catalog:        catalog,
		cache:          cache,
		eventBus:       eventBus,
		clock:          clock,
		rejectOverlaps: opts.RejectOverlaps,
		logger:         logger,
	}
}

// WindowsFor returns the active windows of a weekday ordered by start time.
func (s *CalendarService) WindowsFor(ctx context.Context, serviceID int64, dayOfWeek int, staffMemberID *int64) ([]*models.AvailabilityWindow, error) {
	return s.store.ListActiveWindows(ctx, serviceID, dayOfWeek, staffMemberID)
}

func (s *CalendarService) ListWindows(ctx context.Context, serviceID int64) ([]*models.AvailabilityWindow, error) {
	if _, err := s.catalog.GetService(ctx, serviceID); err != nil {
		return nil, err
	}
	return s.store.ListServiceWindows(ctx, serviceID)
}

func (s *CalendarService) GetWindow(ctx context.Context, id int64) (*models.AvailabilityWindow, error) {
	return s.store.GetWindow(ctx, id)
}

func (s *CalendarService) AddWindow(ctx context.Context, w *models.AvailabilityWindow) error {
	w.IsActive = true
	if err := s.validate(ctx, w); err != nil {
		return err
	}
	if err := s.store.CreateWindow(ctx, w); err != nil {
		return err
	}
	s.changed(ctx, w, "window_added")
	return nil
}

func (s *CalendarService) UpdateWindow(ctx context.Context, w *models.AvailabilityWindow) error {
	existing, err := s.store.GetWindow(ctx, w.ID)
	if err != nil {
		return err
	}
	if existing.ServiceID != w.ServiceID {
		return domain.Invalid("service_id", "cannot move a window to another service")
	}
	if err := s.validate(ctx, w); err != nil {
		return err
	}
	if err := s.store.UpdateWindow(ctx, w); err != nil {
		return err
	}
	s.changed(ctx, w, "window_updated")
	return nil
}

// RemoveWindow deletes a window, or only deactivates it while upcoming bookings
// still sit inside its shape. It reports whether the window was kept as inactive.
func (s *CalendarService) RemoveWindow(ctx context.Context, id int64) (bool, error) {
	w, err := s.store.GetWindow(ctx, id)
	if err != nil {
		return false, err
	}
	svc, err := s.catalog.GetService(ctx, w.ServiceID)
	if err != nil {
		return false, err
	}

	today := models.DateOnly(s.clock.Now().In(s.catalog.Location(svc)))
	referenced, err := s.bookings.HasActiveBookingsInWindow(ctx, w, today)
	if err != nil {
		return false, err
	}

	if referenced {
		if err := s.store.DeactivateWindow(ctx, id); err != nil {
			return false, err
		}
		s.logger.Info().Int64("window_id", id).Msg("window deactivated, upcoming bookings reference it")
	} else {
		if err := s.store.DeleteWindow(ctx, id); err != nil {
			return false, err
		}
	}

	s.changed(ctx, w, "window_removed")
	return referenced, nil
}

func (s *CalendarService) validate(ctx context.Context, w *models.AvailabilityWindow) error {
	v := domain.NewValidationError()
	if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
		v.Add("day_of_week", "must be between 0 (Sunday) and 6 (Saturday)")
	}
	if w.StartTime >= w.EndTime {
		v.Add("end_time", "must be after start_time")
	}
	if err := v.OrNil(); err != nil {
		return err
	}

	svc, err := s.catalog.GetService(ctx, w.ServiceID)
	if err != nil {
		return err
	}
	if w.StaffMemberID != nil {
		if err := s.catalog.ResolveStaff(ctx, svc, w.StaffMemberID); err != nil {
			return err
		}
	}

	if !s.rejectOverlaps || !w.IsActive {
		return nil
	}
	siblings, err := s.store.ListActiveWindows(ctx, w.ServiceID, w.DayOfWeek, w.StaffMemberID)
	if err != nil {
		return err
	}
	for _, other := range siblings {
		if other.ID != w.ID && w.Overlaps(other) {
			return domain.Invalid("start_time", fmt.Sprintf("overlaps window %d (%s-%s)", other.ID, other.StartTime, other.EndTime))
		}
	}
	return nil
}

func (s *CalendarService) changed(ctx context.Context, w *models.AvailabilityWindow, action string) {
	if s.cache != nil {
		if err := s.cache.InvalidateService(ctx, w.ServiceID); err != nil {
			s.logger.Warn().Err(err).Int64("service_id", w.ServiceID).Msg("slot cache invalidation failed")
		}
	}
	if s.eventBus != nil {
		payload := events.ScheduleEventPayload{ServiceID: w.ServiceID, WindowID: w.ID, Action: action}
		if err := s.eventBus.PublishJSON(events.EventCalendarChanged, payload); err != nil {
			s.logger.Error().Err(err).Int64("window_id", w.ID).Msg("publish event error")
		}
	}
}
