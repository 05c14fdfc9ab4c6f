package service

import (
	"context"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"bookable/internal/domain"
	"bookable/internal/events"
	"bookable/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioEnv: 60 minute service, Monday 09:00-12:00, one participant per slot.
func scenarioEnv(t *testing.T, mutate func(s *models.ServiceDefinition)) (*testEnv, *models.ServiceDefinition) {
	t.Helper()
	env := newTestEnv(t)
	svc := env.addService(t, mutate)
	env.addWindow(t, svc.ID, 1, "09:00", "12:00", nil)
	return env, svc
}

func TestBookingScenarios(t *testing.T) {
	ctx := context.Background()
	env, svc := scenarioEnv(t, func(s *models.ServiceDefinition) { s.CancellationDeadlineHours = 24 })

	// A
	slots, err := env.availability.ListAvailableSlots(ctx, svc.ID, nil, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00:00", "10:00:00", "11:00:00"}, slotTimes(slots))

	// B
	booking, err := env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "10:00", 1))
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, booking.Status)

	slots, err = env.availability.ListAvailableSlots(ctx, svc.ID, nil, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00:00", "11:00:00"}, slotTimes(slots))

	// C
	cancelled, err := env.ledger.Cancel(ctx, booking.ID, "plans changed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, "plans changed", cancelled.CancellationReason)

	check, err := env.availability.CheckSlot(ctx, svc.ID, nil, monday, models.MustParseClockTime("10:00"))
	require.NoError(t, err)
	assert.True(t, check.Available)
	assert.Equal(t, 1, *check.AvailableSpots)

	// D
	late, err := env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "11:00", 1))
	require.NoError(t, err)
	env.clock.Set(time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC)) // 23h before start

	_, err = env.ledger.Cancel(ctx, late.ID, "too late")
	assert.ErrorIs(t, err, domain.ErrCancellationWindowClosed)

	unchanged, err := env.ledger.Get(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, unchanged.Status)
	assert.Equal(t, int64(1), unchanged.Version)
}

func TestConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	env, svc := scenarioEnv(t, nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "09:00", 1))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	}
	assert.Equal(t, 1, succeeded)

	committed, err := env.capacity.CommittedParticipants(ctx, models.SlotKey{ServiceID: svc.ID, Date: monday, Time: models.MustParseClockTime("09:00")})
	require.NoError(t, err)
	assert.Equal(t, 1, committed)
}

func TestCreate_ExactFillBoundary(t *testing.T) {
	ctx := context.Background()
	env, svc := scenarioEnv(t, func(s *models.ServiceDefinition) { s.MaxParticipants = 5 })

	_, err := env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "09:00", 2))
	require.NoError(t, err)

	_, err = env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "09:00", 4))
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded, "never clamped to the remaining spots")

	_, err = env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "09:00", 3))
	require.NoError(t, err)

	_, err = env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "09:00", 1))
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	remaining, err := env.capacity.RemainingCapacity(ctx, svc, models.SlotKey{ServiceID: svc.ID, Date: monday, Time: models.MustParseClockTime("09:00")})
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	env, svc := scenarioEnv(t, func(s *models.ServiceDefinition) { s.AdvanceBookingDays = 7 })

	tests := []struct {
		name    string
		req     CreateBookingRequest
		wantErr error
	}{
		{name: "ZeroParticipants", req: bookingRequest(svc.ID, monday, "09:00", 0), wantErr: domain.ErrValidation},
		{name: "BadDate", req: func() CreateBookingRequest {
			r := bookingRequest(svc.ID, monday, "09:00", 1)
			r.Date = "05.01.2026"
			return r
		}(), wantErr: domain.ErrValidation},
		{name: "NoCustomer", req: func() CreateBookingRequest {
			r := bookingRequest(svc.ID, monday, "09:00", 1)
			r.CustomerName = " "
			return r
		}(), wantErr: domain.ErrValidation},
		{name: "EndOfDayStart", req: bookingRequest(svc.ID, monday, "24:00", 1), wantErr: domain.ErrValidation},
		{name: "UnknownService", req: bookingRequest(999, monday, "09:00", 1), wantErr: domain.ErrNotFound},
		{name: "PastSlot", req: bookingRequest(svc.ID, monday.AddDate(0, 0, -7), "09:00", 1), wantErr: domain.ErrValidation},
		{name: "BeyondAdvanceWindow", req: bookingRequest(svc.ID, monday.AddDate(0, 0, 7), "09:00", 1), wantErr: domain.ErrAdvanceWindowExceeded},
		{name: "OutOfWindow", req: bookingRequest(svc.ID, monday, "12:00", 1), wantErr: domain.ErrOutOfWindow},
		{name: "WrongWeekday", req: bookingRequest(svc.ID, monday.AddDate(0, 0, 1), "09:00", 1), wantErr: domain.ErrOutOfWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ledger.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	list, err := env.ledger.List(ctx, models.BookingFilter{ServiceID: svc.ID})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreate_AdvanceWindowEdge(t *testing.T) {
	ctx := context.Background()
	// clock is Thursday 2026-01-01; 4 days ahead is Monday
	env, svc := scenarioEnv(t, func(s *models.ServiceDefinition) { s.AdvanceBookingDays = 4 })

	_, err := env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "09:00", 1))
	require.NoError(t, err)

	_, err = env.ledger.Create(ctx, bookingRequest(svc.ID, monday.AddDate(0, 0, 7), "09:00", 1))
	assert.ErrorIs(t, err, domain.ErrAdvanceWindowExceeded)
}

func TestCreate_ServiceTimezone(t *testing.T) {
	ctx := context.Background()
	env, svc := scenarioEnv(t, func(s *models.ServiceDefinition) { s.Timezone = "Asia/Tokyo" })

	// Monday 09:00 in Tokyo is Monday 00:00 UTC
	env.clock.Set(time.Date(2026, 1, 5, 0, 30, 0, 0, time.UTC))
	_, err := env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "09:00", 1))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "10:00", 1))
	require.NoError(t, err)
}

func TestCreate_DailyLimit(t *testing.T) {
	ctx := context.Background()
	env, svc := scenarioEnv(t, func(s *models.ServiceDefinition) { s.MaxBookingsPerDay = 1 })

	_, err := env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "09:00", 1))
	require.NoError(t, err)

	_, err = env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "10:00", 1))
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
}

func TestCreate_RequiresStaff(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := env.addService(t, func(s *models.ServiceDefinition) { s.RequiresStaff = true })
	anna := &models.StaffMember{ServiceID: svc.ID, Name: "Anna"}
	boris := &models.StaffMember{ServiceID: svc.ID, Name: "Boris"}
	require.NoError(t, env.catalog.AddStaffMember(ctx, anna))
	require.NoError(t, env.catalog.AddStaffMember(ctx, boris))
	env.addWindow(t, svc.ID, 1, "09:00", "10:00", &anna.ID)
	env.addWindow(t, svc.ID, 1, "09:00", "10:00", &boris.ID)

	_, err := env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "09:00", 1))
	assert.ErrorIs(t, err, domain.ErrValidation)

	withAnna := bookingRequest(svc.ID, monday, "09:00", 1)
	withAnna.StaffMemberID = &anna.ID
	_, err = env.ledger.Create(ctx, withAnna)
	require.NoError(t, err)

	// capacity is partitioned per staff member
	withBoris := bookingRequest(svc.ID, monday, "09:00", 1)
	withBoris.StaffMemberID = &boris.ID
	_, err = env.ledger.Create(ctx, withBoris)
	require.NoError(t, err)

	_, err = env.ledger.Create(ctx, withAnna)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	require.NoError(t, env.catalog.DeactivateStaffMember(ctx, boris.ID))
	_, err = env.ledger.Create(ctx, withBoris)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	env, svc := scenarioEnv(t, func(s *models.ServiceDefinition) {
		s.RequiresApproval = true
		s.MaxParticipants = 10
	})

	var published []string
	env.bus.SubscribeMany(events.BookingEvents, func(e *events.Event) error {
		published = append(published, e.Type)
		return nil
	})

	b, err := env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "09:00", 1))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, b.Status)

	_, err = env.ledger.Complete(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = env.ledger.MarkNoShow(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	confirmed, err := env.ledger.Confirm(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)
	assert.Equal(t, int64(2), confirmed.Version)

	_, err = env.ledger.Confirm(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	completed, err := env.ledger.Complete(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)

	for _, op := range []func(context.Context, int64) (*models.Booking, error){
		env.ledger.Confirm, env.ledger.Complete, env.ledger.MarkNoShow,
		func(ctx context.Context, id int64) (*models.Booking, error) { return env.ledger.Cancel(ctx, id, "") },
	} {
		_, err := op(ctx, b.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "terminal states are final")
	}

	noShow, err := env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "10:00", 2))
	require.NoError(t, err)
	_, err = env.ledger.Confirm(ctx, noShow.ID)
	require.NoError(t, err)
	marked, err := env.ledger.MarkNoShow(ctx, noShow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoShow, marked.Status)

	pending, err := env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "11:00", 1))
	require.NoError(t, err)
	_, err = env.ledger.Cancel(ctx, pending.ID, "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		events.EventBookingCreated, events.EventBookingConfirmed, events.EventBookingCompleted,
		events.EventBookingCreated, events.EventBookingConfirmed, events.EventBookingNoShow,
		events.EventBookingCreated, events.EventBookingCanceled,
	}, published)

	_, err = env.ledger.Confirm(ctx, 12345)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancel_Policy(t *testing.T) {
	ctx := context.Background()

	t.Run("NotAllowed", func(t *testing.T) {
		env, svc := scenarioEnv(t, func(s *models.ServiceDefinition) { s.AllowCancellation = false })
		b, err := env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "09:00", 1))
		require.NoError(t, err)

		_, err = env.ledger.Cancel(ctx, b.ID, "")
		assert.ErrorIs(t, err, domain.ErrCancellationWindowClosed)
	})

	t.Run("DeadlineIsStrict", func(t *testing.T) {
		env, svc := scenarioEnv(t, func(s *models.ServiceDefinition) { s.CancellationDeadlineHours = 2 })
		b, err := env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "09:00", 1))
		require.NoError(t, err)

		env.clock.Set(time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC)) // exactly 2h before
		_, err = env.ledger.Cancel(ctx, b.ID, "")
		assert.ErrorIs(t, err, domain.ErrCancellationWindowClosed)

		env.clock.Set(time.Date(2026, 1, 5, 6, 59, 0, 0, time.UTC))
		_, err = env.ledger.Cancel(ctx, b.ID, "")
		require.NoError(t, err)
	})

	t.Run("NoDeadline", func(t *testing.T) {
		env, svc := scenarioEnv(t, nil)
		b, err := env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "09:00", 1))
		require.NoError(t, err)

		env.clock.Set(time.Date(2026, 1, 5, 8, 59, 0, 0, time.UTC))
		_, err = env.ledger.Cancel(ctx, b.ID, "")
		require.NoError(t, err)
	})

	t.Run("ReasonTooLong", func(t *testing.T) {
		env, svc := scenarioEnv(t, nil)
		b, err := env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "09:00", 1))
		require.NoError(t, err)

		long := make([]byte, models.MaxReasonLength+1)
		for i := range long {
			long[i] = 'x'
		}
		_, err = env.ledger.Cancel(ctx, b.ID, string(long))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()
	env, svc := scenarioEnv(t, func(s *models.ServiceDefinition) { s.MaxParticipants = 3 })
	_, err := env.ledger.Create(ctx, bookingRequest(svc.ID, monday, "09:00", 1))
	require.NoError(t, err)

	list, err := env.ledger.List(ctx, models.BookingFilter{ServiceID: svc.ID, From: monday, To: monday})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = env.ledger.List(ctx, models.BookingFilter{From: monday, To: monday.AddDate(0, 0, -1)})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.ledger.List(ctx, models.BookingFilter{Statuses: []string{"archived"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
