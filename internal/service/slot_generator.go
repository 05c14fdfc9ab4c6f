package service

import (
	"context"
	"time"

	"bookable/internal/models"
)

// WindowSource is the part of the calendar the generator reads.
type WindowSource interface {
	WindowsFor(ctx context.Context, serviceID int64, dayOfWeek int, staffMemberID *int64) ([]*models.AvailabilityWindow, error)
}

// SlotGenerator steps availability windows into bookable slots. It only reads.
type SlotGenerator struct {
	windows  WindowSource
	capacity *CapacityTracker
	mode     string
}

func NewSlotGenerator(windows WindowSource, capacity *CapacityTracker, mode string) *SlotGenerator {
	if mode != models.SlotGenerationBuffered {
		mode = models.SlotGenerationLegacy
	}
	return &SlotGenerator{windows: windows, capacity: capacity, mode: mode}
}

// Mode is the generation variant in use, part of every cache key.
func (g *SlotGenerator) Mode() string {
	return g.mode
}

// Generate returns slots with spare capacity for a service on a calendar date,
// window by window in start-time order. Overlapping windows may yield the same time twice.
func (g *SlotGenerator) Generate(ctx context.Context, svc *models.ServiceDefinition, staffMemberID *int64, date time.Time) ([]models.Slot, error) {
	windows, err := g.windows.WindowsFor(ctx, svc.ID, models.DayOfWeek(date), staffMemberID)
	if err != nil {
		return nil, err
	}

	slots := make([]models.Slot, 0)
	for _, w := range windows {
		for _, start := range g.candidates(svc, w) {
			key := models.SlotKey{ServiceID: svc.ID, StaffMemberID: staffMemberID, Date: date, Time: start}
			committed, err := g.capacity.CommittedParticipants(ctx, key)
			if err != nil {
				return nil, err
			}
			spots := svc.MaxParticipants - committed
			if spots <= 0 {
				continue
			}
			slots = append(slots, models.Slot{
				Time:            start,
				EndTime:         start.AddMinutes(svc.DurationMinutes),
				AvailableSpots:  spots,
				MaxParticipants: svc.MaxParticipants,
			})
		}
	}
	return slots, nil
}

// candidates lists slot starts of one window. Offsets are kept in plain seconds
// so a step past midnight ends the loop instead of wrapping to 00:00.
func (g *SlotGenerator) candidates(svc *models.ServiceDefinition, w *models.AvailabilityWindow) []models.ClockTime {
	duration := svc.DurationMinutes * 60
	if duration <= 0 {
		return nil
	}
	end := int(w.EndTime)

	var out []models.ClockTime
	if g.mode == models.SlotGenerationBuffered {
		before := svc.BufferBeforeMinutes * 60
		after := svc.BufferAfterMinutes * 60
		step := before + duration + after
		for current := int(w.StartTime) + before; current < end; current += step {
			if current+duration+after > end {
				break
			}
			out = append(out, models.ClockTime(current))
		}
		return out
	}

	// legacy: the last slot may run past the window end
	for current := int(w.StartTime); current < end; current += duration {
		out = append(out, models.ClockTime(current))
	}
	return out
}
