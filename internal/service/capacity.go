package service

import (
	"context"

	"bookable/internal/domain"
	"bookable/internal/models"
)

// CapacityTracker answers how many participants a slot still takes.
type CapacityTracker struct {
	bookings domain.BookingStore
}

func NewCapacityTracker(bookings domain.BookingStore) *CapacityTracker {
	return &CapacityTracker{bookings: bookings}
}

// CommittedParticipants sums pending and confirmed participants for the key.
func (c *CapacityTracker) CommittedParticipants(ctx context.Context, key models.SlotKey) (int, error) {
	return c.bookings.CommittedParticipants(ctx, key)
}

// RemainingCapacity is max(0, MaxParticipants - committed).
func (c *CapacityTracker) RemainingCapacity(ctx context.Context, svc *models.ServiceDefinition, key models.SlotKey) (int, error) {
	committed, err := c.CommittedParticipants(ctx, key)
	if err != nil {
		return 0, err
	}
	return remaining(svc.MaxParticipants, committed), nil
}

func remaining(limit, committed int) int {
	if committed >= limit {
		return 0
	}
	return limit - committed
}
