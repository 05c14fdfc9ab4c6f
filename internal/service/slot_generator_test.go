package service

import (
	"context"
	"testing"

	"bookable/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotGenerator_Legacy(t *testing.T) {
	ctx := context.Background()

	t.Run("StepsByDuration", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.addService(t, nil)
		env.addWindow(t, svc.ID, 1, "09:00", "12:00", nil)

		slots, err := env.generator.Generate(ctx, svc, nil, monday)
		require.NoError(t, err)
		assert.Equal(t, []string{"09:00:00", "10:00:00", "11:00:00"}, slotTimes(slots))
		assert.Equal(t, "12:00:00", slots[2].EndTime.String())
		for _, s := range slots {
			assert.Equal(t, 1, s.AvailableSpots)
			assert.Equal(t, 1, s.MaxParticipants)
		}
	})

	t.Run("WindowEndingAtMidnight", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.addService(t, nil)
		env.addWindow(t, svc.ID, 1, "22:00", "24:00", nil)

		slots, err := env.generator.Generate(ctx, svc, nil, monday)
		require.NoError(t, err)
		assert.Equal(t, []string{"22:00:00", "23:00:00"}, slotTimes(slots))
		assert.Equal(t, "00:00:00", slots[1].EndTime.String())

		booking, err := env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "23:00", 1))
		require.NoError(t, err)
		assert.Equal(t, "23:00:00", booking.Time.String())

		stored, err := env.calendar.ListWindows(ctx, svc.ID)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, models.EndOfDay, stored[0].EndTime)
	})

	t.Run("LastSlotMayOverrunWindow", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.addService(t, func(s *models.ServiceDefinition) { s.DurationMinutes = 45 })
		env.addWindow(t, svc.ID, 1, "09:00", "10:00", nil)

		slots, err := env.generator.Generate(ctx, svc, nil, monday)
		require.NoError(t, err)
		assert.Equal(t, []string{"09:00:00", "09:45:00"}, slotTimes(slots))
		assert.Equal(t, "10:30:00", slots[1].EndTime.String())
	})

	t.Run("StopsAtMidnight", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.addService(t, func(s *models.ServiceDefinition) { s.DurationMinutes = 90 })
		env.addWindow(t, svc.ID, 1, "21:00", "23:59:59", nil)

		slots, err := env.generator.Generate(ctx, svc, nil, monday)
		require.NoError(t, err)
		assert.Equal(t, []string{"21:00:00", "22:30:00"}, slotTimes(slots))
		assert.Equal(t, "00:00:00", slots[1].EndTime.String())
	})

	t.Run("BuffersIgnored", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.addService(t, func(s *models.ServiceDefinition) {
			s.BufferBeforeMinutes = 15
			s.BufferAfterMinutes = 15
		})
		env.addWindow(t, svc.ID, 1, "09:00", "12:00", nil)

		slots, err := env.generator.Generate(ctx, svc, nil, monday)
		require.NoError(t, err)
		assert.Equal(t, []string{"09:00:00", "10:00:00", "11:00:00"}, slotTimes(slots))
	})

	t.Run("OverlappingWindowsNotDeduplicated", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.addService(t, func(s *models.ServiceDefinition) { s.MaxParticipants = 2 })
		env.addWindow(t, svc.ID, 1, "09:00", "11:00", nil)
		env.addWindow(t, svc.ID, 1, "10:00", "12:00", nil)

		slots, err := env.generator.Generate(ctx, svc, nil, monday)
		require.NoError(t, err)
		assert.Equal(t, []string{"09:00:00", "10:00:00", "10:00:00", "11:00:00"}, slotTimes(slots))
	})

	t.Run("NoWindowsIsEmpty", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.addService(t, nil)
		env.addWindow(t, svc.ID, 2, "09:00", "12:00", nil)

		slots, err := env.generator.Generate(ctx, svc, nil, monday)
		require.NoError(t, err)
		assert.NotNil(t, slots)
		assert.Empty(t, slots)
	})

	t.Run("SundayIsZero", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.addService(t, nil)
		env.addWindow(t, svc.ID, 0, "10:00", "11:00", nil)

		slots, err := env.generator.Generate(ctx, svc, nil, monday.AddDate(0, 0, -1))
		require.NoError(t, err)
		assert.Equal(t, []string{"10:00:00"}, slotTimes(slots))
	})
}

func TestSlotGenerator_Buffered(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, withBuffers)
	assert.Equal(t, models.SlotGenerationBuffered, env.generator.Mode())

	svc := env.addService(t, func(s *models.ServiceDefinition) {
		s.BufferBeforeMinutes = 15
		s.BufferAfterMinutes = 15
	})
	env.addWindow(t, svc.ID, 1, "09:00", "12:00", nil)

	// 09:15-10:15 (+15), then step 90 minutes: 10:45-11:45 (+15 = 12:00 fits)
	slots, err := env.generator.Generate(ctx, svc, nil, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:15:00", "10:45:00"}, slotTimes(slots))
	assert.Equal(t, "11:45:00", slots[1].EndTime.String())
}

func TestSlotGenerator_StaffScope(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := env.addService(t, func(s *models.ServiceDefinition) { s.RequiresStaff = true })
	anna := &models.StaffMember{ServiceID: svc.ID, Name: "Anna"}
	require.NoError(t, env.catalog.AddStaffMember(ctx, anna))
	env.addWindow(t, svc.ID, 1, "09:00", "11:00", &anna.ID)

	slots, err := env.generator.Generate(ctx, svc, &anna.ID, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00:00", "10:00:00"}, slotTimes(slots))

	serviceWide, err := env.generator.Generate(ctx, svc, nil, monday)
	require.NoError(t, err)
	assert.Empty(t, serviceWide)
}
