package service

import (
	"context"
	"time"

	"bookable/internal/domain"
	"bookable/internal/metrics"
	"bookable/internal/models"

	"github.com/rs/zerolog"
)

const (
	ReasonNoWindow    = "No availability for this time"
	ReasonFullyBooked = "Slot is fully booked"
)

// AvailabilityService is the read facade over catalog, calendar and capacity.
type AvailabilityService struct {
	catalog   *CatalogService
	calendar  WindowSource
	capacity  *CapacityTracker
	generator *SlotGenerator
	cache     domain.SlotCache
	logger    *zerolog.Logger
}

func NewAvailabilityService(
	catalog *CatalogService,
	calendar WindowSource,
	capacity *CapacityTracker,
	generator *SlotGenerator,
	cache domain.SlotCache,
	logger *zerolog.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		catalog:   catalog,
		calendar:  calendar,
		capacity:  capacity,
		generator: generator,
		cache:     cache,
		logger:    logger,
	}
}

// CheckSlot reports whether one exact slot can take another participant.
func (s *AvailabilityService) CheckSlot(ctx context.Context, serviceID int64, staffMemberID *int64, date time.Time, at models.ClockTime) (*models.SlotCheck, error) {
	svc, err := s.resolve(ctx, serviceID, staffMemberID)
	if err != nil {
		return nil, err
	}
	date = models.DateOnly(date)

	windows, err := s.calendar.WindowsFor(ctx, svc.ID, models.DayOfWeek(date), staffMemberID)
	if err != nil {
		return nil, err
	}

	var covering *models.AvailabilityWindow
	for _, w := range windows {
		if w.Contains(at) {
			covering = w
			break
		}
	}
	if covering == nil {
		return &models.SlotCheck{Available: false, Reason: ReasonNoWindow}, nil
	}

	committed, err := s.capacity.CommittedParticipants(ctx, models.SlotKey{
		ServiceID:     svc.ID,
		StaffMemberID: staffMemberID,
		Date:          date,
		Time:          at,
	})
	if err != nil {
		return nil, err
	}

	spots := remaining(svc.MaxParticipants, committed)
	check := &models.SlotCheck{Available: committed < svc.MaxParticipants, AvailableSpots: &spots}
	if !check.Available {
		check.Reason = ReasonFullyBooked
	}
	return check, nil
}

// ListAvailableSlots returns the generated slots of a date, through the slot cache when configured.
func (s *AvailabilityService) ListAvailableSlots(ctx context.Context, serviceID int64, staffMemberID *int64, date time.Time) ([]models.Slot, error) {
	svc, err := s.resolve(ctx, serviceID, staffMemberID)
	if err != nil {
		return nil, err
	}
	return s.slotsFor(ctx, svc, staffMemberID, models.DateOnly(date))
}

// GetAvailabilityForPeriod summarises days consecutive dates starting at start.
func (s *AvailabilityService) GetAvailabilityForPeriod(ctx context.Context, serviceID int64, staffMemberID *int64, start time.Time, days int) ([]models.DayAvailability, error) {
	if days < 1 || days > models.MaxPeriodDays {
		return nil, domain.Invalid("days", "must be between 1 and 62")
	}
	svc, err := s.resolve(ctx, serviceID, staffMemberID)
	if err != nil {
		return nil, err
	}

	start = models.DateOnly(start)
	result := make([]models.DayAvailability, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		slots, err := s.slotsFor(ctx, svc, staffMemberID, date)
		if err != nil {
			return nil, err
		}
		total := 0
		for _, slot := range slots {
			total += slot.AvailableSpots
		}
		result = append(result, models.DayAvailability{
			Date:           date,
			DayOfWeek:      models.DayOfWeek(date),
			Slots:          slots,
			AvailableSpots: total,
		})
	}
	return result, nil
}

func (s *AvailabilityService) resolve(ctx context.Context, serviceID int64, staffMemberID *int64) (*models.ServiceDefinition, error) {
	svc, err := s.catalog.ActiveService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if staffMemberID != nil {
		if err := s.catalog.ResolveStaff(ctx, svc, staffMemberID); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

func (s *AvailabilityService) slotsFor(ctx context.Context, svc *models.ServiceDefinition, staffMemberID *int64, date time.Time) ([]models.Slot, error) {
	if s.cache == nil {
		return s.generator.Generate(ctx, svc, staffMemberID, date)
	}

	key := domain.SlotCacheKey{ServiceID: svc.ID, StaffMemberID: staffMemberID, Date: date, Generation: s.generator.Mode()}
	cached, ok, err := s.cache.GetSlots(ctx, key)
	switch {
	case err != nil:
		metrics.IncCacheLookup("error")
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("slot cache read failed")
	case ok:
		metrics.IncCacheLookup("hit")
		return cached, nil
	default:
		metrics.IncCacheLookup("miss")
	}

	slots, err := s.generator.Generate(ctx, svc, staffMemberID, date)
	if err != nil {
		return nil, err
	}
	// An invalidation landing between Generate and SetSlots leaves this entry
	// stale until the cache TTL; Create re-checks capacity regardless.
	if err := s.cache.SetSlots(ctx, key, slots); err != nil {
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("slot cache write failed")
	}
	return slots, nil
}
