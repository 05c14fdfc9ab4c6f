package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookable/internal/domain"
	"bookable/internal/events"
	"bookable/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService owns service definitions and their staff members.
type CatalogService struct {
	store      domain.CatalogStore
	cache      domain.SlotCache
	eventBus   domain.EventPublisher
	defaultLoc *time.Location
	logger     *zerolog.Logger
}

func NewCatalogService(store domain.CatalogStore, cache domain.SlotCache, eventBus domain.EventPublisher, defaultLoc *time.Location, logger *zerolog.Logger) *CatalogService {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &CatalogService{
		store:      store,
		cache:      cache,
		eventBus:   eventBus,
		defaultLoc: defaultLoc,
		logger:     logger,
	}
}

// ValidateService checks the scheduling parameters of a definition.
func ValidateService(svc *models.ServiceDefinition) error {
	v := domain.NewValidationError()
	if strings.TrimSpace(svc.Name) == "" {
		v.Add("name", "is required")
	}
	if svc.DurationMinutes <= 0 {
		v.Add("duration_minutes", "must be positive")
	}
	if svc.MaxParticipants < 1 {
		v.Add("max_participants", "must be at least 1")
	}
	if svc.BufferBeforeMinutes < 0 {
		v.Add("buffer_before_minutes", "must not be negative")
	}
	if svc.BufferAfterMinutes < 0 {
		v.Add("buffer_after_minutes", "must not be negative")
	}
	if svc.AdvanceBookingDays < 0 {
		v.Add("advance_booking_days", "must not be negative")
	}
	if svc.CancellationDeadlineHours < 0 {
		v.Add("cancellation_deadline_hours", "must not be negative")
	}
	if svc.MaxBookingsPerDay < 0 {
		v.Add("max_bookings_per_day", "must not be negative")
	}
	if svc.Timezone != "" {
		if _, err := time.LoadLocation(svc.Timezone); err != nil {
			v.Add("timezone", "unknown timezone")
		}
	}
	return v.OrNil()
}

// Location resolves the timezone a service's windows are authored in.
func (s *CatalogService) Location(svc *models.ServiceDefinition) *time.Location {
	loc, err := svc.Location(s.defaultLoc)
	if err != nil {
		s.logger.Warn().Err(err).Int64("service_id", svc.ID).Msg("invalid service timezone, using default")
		return s.defaultLoc
	}
	return loc
}

func (s *CatalogService) GetService(ctx context.Context, id int64) (*models.ServiceDefinition, error) {
	svc, err := s.store.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	return svc.Clone(), nil
}

// ActiveService returns a snapshot of the service, treating inactive services as not found.
func (s *CatalogService) ActiveService(ctx context.Context, id int64) (*models.ServiceDefinition, error) {
	svc, err := s.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	if !svc.IsActive {
		return nil, fmt.Errorf("service %d is inactive: %w", id, domain.ErrNotFound)
	}
	return svc, nil
}

func (s *CatalogService) ListServices(ctx context.Context, activeOnly bool) ([]*models.ServiceDefinition, error) {
	return s.store.ListServices(ctx, activeOnly)
}

func (s *CatalogService) CreateService(ctx context.Context, svc *models.ServiceDefinition) error {
	if err := ValidateService(svc); err != nil {
		return err
	}
	if err := s.store.CreateService(ctx, svc); err != nil {
		return err
	}
	s.logger.Info().Int64("service_id", svc.ID).Str("name", svc.Name).Msg("service created")
	s.publish(svc.ID, "service_created")
	return nil
}

func (s *CatalogService) UpdateService(ctx context.Context, svc *models.ServiceDefinition) error {
	if err := ValidateService(svc); err != nil {
		return err
	}
	if err := s.store.UpdateService(ctx, svc); err != nil {
		return err
	}
	s.invalidate(ctx, svc.ID)
	s.publish(svc.ID, "service_updated")
	return nil
}

func (s *CatalogService) DeactivateService(ctx context.Context, id int64) error {
	if err := s.store.DeactivateService(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.publish(id, "service_deactivated")
	return nil
}

// Sync upserts seed definitions by name. Existing ids are kept.
func (s *CatalogService) Sync(ctx context.Context, seeds []models.ServiceDefinition) error {
	for i := range seeds {
		seed := seeds[i]
		existing, err := s.store.GetServiceByName(ctx, seed.Name)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if err := s.CreateService(ctx, &seed); err != nil {
				return fmt.Errorf("seed service %q: %w", seed.Name, err)
			}
		case err != nil:
			return err
		default:
			seed.ID = existing.ID
			if err := s.UpdateService(ctx, &seed); err != nil {
				return fmt.Errorf("seed service %q: %w", seed.Name, err)
			}
		}
	}
	return nil
}

// ResolveStaff checks an optional staff member against the service.
func (s *CatalogService) ResolveStaff(ctx context.Context, svc *models.ServiceDefinition, staffMemberID *int64) error {
	if staffMemberID == nil {
		if svc.RequiresStaff {
			return domain.Invalid("staff_member_id", "is required for this service")
		}
		return nil
	}
	member, err := s.store.GetStaffMember(ctx, *staffMemberID)
	if err != nil {
		return err
	}
	if member.ServiceID != svc.ID {
		return domain.Invalid("staff_member_id", "does not belong to this service")
	}
	if !member.IsActive {
		return fmt.Errorf("staff member %d is inactive: %w", member.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *CatalogService) AddStaffMember(ctx context.Context, member *models.StaffMember) error {
	if strings.TrimSpace(member.Name) == "" {
		return domain.Invalid("name", "is required")
	}
	if _, err := s.store.GetService(ctx, member.ServiceID); err != nil {
		return err
	}
	member.IsActive = true
	return s.store.CreateStaffMember(ctx, member)
}

func (s *CatalogService) ListStaffMembers(ctx context.Context, serviceID int64) ([]*models.StaffMember, error) {
	return s.store.ListStaffMembers(ctx, serviceID)
}

func (s *CatalogService) DeactivateStaffMember(ctx context.Context, id int64) error {
	member, err := s.store.GetStaffMember(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeactivateStaffMember(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, member.ServiceID)
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context, serviceID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateService(ctx, serviceID); err != nil {
		s.logger.Warn().Err(err).Int64("service_id", serviceID).Msg("slot cache invalidation failed")
	}
}

func (s *CatalogService) publish(serviceID int64, action string) {
	if s.eventBus == nil {
		return
	}
	payload := events.ScheduleEventPayload{ServiceID: serviceID, Action: action}
	if err := s.eventBus.PublishJSON(events.EventCatalogChanged, payload); err != nil {
		s.logger.Error().Err(err).Int64("service_id", serviceID).Msg("publish event error")
	}
}
