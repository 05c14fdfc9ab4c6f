package domain

import (
	"context"
	"time"

	"bookable/internal/models"
)

type CatalogStore interface {
	GetService(ctx context.Context, id int64) (*models.ServiceDefinition, error)
	GetServiceByName(ctx context.Context, name string) (*models.ServiceDefinition, error)
	ListServices(ctx context.Context, activeOnly bool) ([]*models.ServiceDefinition, error)
	CreateService(ctx context.Context, svc *models.ServiceDefinition) error
	UpdateService(ctx context.Context, svc *models.ServiceDefinition) error
	DeactivateService(ctx context.Context, id int64) error

	GetStaffMember(ctx context.Context, id int64) (*models.StaffMember, error)
	ListStaffMembers(ctx context.Context, serviceID int64) ([]*models.StaffMember, error)
	CreateStaffMember(ctx context.Context, member *models.StaffMember) error
	DeactivateStaffMember(ctx context.Context, id int64) error
}

type CalendarStore interface {
	GetWindow(ctx context.Context, id int64) (*models.AvailabilityWindow, error)
	// ListActiveWindows returns active windows for the exact staff scope, ordered by start time.
	ListActiveWindows(ctx context.Context, serviceID int64, dayOfWeek int, staffMemberID *int64) ([]*models.AvailabilityWindow, error)
	ListServiceWindows(ctx context.Context, serviceID int64) ([]*models.AvailabilityWindow, error)
	CreateWindow(ctx context.Context, w *models.AvailabilityWindow) error
	UpdateWindow(ctx context.Context, w *models.AvailabilityWindow) error
	DeactivateWindow(ctx context.Context, id int64) error
	DeleteWindow(ctx context.Context, id int64) error
}

type BookingStore interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	// CommittedParticipants sums participants of pending and confirmed bookings for the key.
	CommittedParticipants(ctx context.Context, key models.SlotKey) (int, error)
	// CreateBookingWithLock re-checks limits and inserts in one transaction.
	CreateBookingWithLock(ctx context.Context, booking *models.Booking, limits models.CapacityLimits) error
	// UpdateBookingStatusWithVersion is a compare-and-swap on (id, version, status).
	UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, fromStatus, toStatus, reason string) error
	// HasActiveBookingsInWindow reports non-terminal bookings on or after since that fall inside the window shape.
	HasActiveBookingsInWindow(ctx context.Context, w *models.AvailabilityWindow, since time.Time) (bool, error)
}

// SlotCache stores generated slot lists. Misses are reported as (nil, false, nil).
type SlotCache interface {
	GetSlots(ctx context.Context, key SlotCacheKey) ([]models.Slot, bool, error)
	SetSlots(ctx context.Context, key SlotCacheKey, slots []models.Slot) error
	InvalidateDate(ctx context.Context, serviceID int64, date time.Time) error
	InvalidateService(ctx context.Context, serviceID int64) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Clock supplies "now" so that tests can pin time.
type Clock interface {
	Now() time.Time
}
