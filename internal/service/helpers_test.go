package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"bookable/internal/database"
	"bookable/internal/domain"
	"bookable/internal/events"
	"bookable/internal/models"
	"bookable/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// 2026-01-05 is a Monday.
var monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type envOptions struct {
	mode           string
	rejectOverlaps bool
	withCache      bool
}

type testEnv struct {
	db           *database.DB
	clock        *fakeClock
	bus          *events.EventBus
	cache        *repository.MemorySlotCache
	catalog      *CatalogService
	calendar     *CalendarService
	capacity     *CapacityTracker
	generator    *SlotGenerator
	availability *AvailabilityService
	ledger       *BookingLedger
}

func newTestEnv(t *testing.T, opts ...func(o *envOptions)) *testEnv {
	t.Helper()
	o := envOptions{mode: models.SlotGenerationLegacy}
	for _, fn := range opts {
		fn(&o)
	}

	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		db:    db,
		clock: newFakeClock(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)),
		bus:   events.NewEventBus(),
	}

	var cache *repository.MemorySlotCache
	if o.withCache {
		cache = repository.NewMemorySlotCache(time.Minute)
		env.cache = cache
	}
	slotCache := slotCacheOrNil(cache)

	env.catalog = NewCatalogService(db, slotCache, env.bus, time.UTC, &logger)
	env.calendar = NewCalendarService(db, db, env.catalog, slotCache, env.bus, env.clock, CalendarOptions{RejectOverlaps: o.rejectOverlaps}, &logger)
	env.capacity = NewCapacityTracker(db)
	env.generator = NewSlotGenerator(env.calendar, env.capacity, o.mode)
	env.availability = NewAvailabilityService(env.catalog, env.calendar, env.capacity, env.generator, slotCache, &logger)
	env.ledger = NewBookingLedger(env.catalog, env.calendar, db, slotCache, env.bus, env.clock, &logger)
	return env
}

func withCache(o *envOptions)      { o.withCache = true }
func withBuffers(o *envOptions)    { o.mode = models.SlotGenerationBuffered }
func rejectOverlaps(o *envOptions) { o.rejectOverlaps = true }

func (e *testEnv) addService(t *testing.T, mutate func(s *models.ServiceDefinition)) *models.ServiceDefinition {
	t.Helper()
	svc := &models.ServiceDefinition{
		Name:              "Consultation",
		DurationMinutes:   60,
		MaxParticipants:   1,
		AllowCancellation: true,
		IsActive:          true,
	}
	if mutate != nil {
		mutate(svc)
	}
	require.NoError(t, e.catalog.CreateService(context.Background(), svc))
	return svc
}

func (e *testEnv) addWindow(t *testing.T, serviceID int64, dow int, start, end string, staffID *int64) *models.AvailabilityWindow {
	t.Helper()
	w := &models.AvailabilityWindow{
		ServiceID:     serviceID,
		DayOfWeek:     dow,
		StartTime:     models.MustParseClockTime(start),
		EndTime:       models.MustParseClockTime(end),
		StaffMemberID: staffID,
	}
	require.NoError(t, e.calendar.AddWindow(context.Background(), w))
	return w
}

func bookingRequest(serviceID int64, date time.Time, at string, participants int) CreateBookingRequest {
	return CreateBookingRequest{
		ServiceID:         serviceID,
		Date:              date.Format(models.DateFormat),
		Time:              models.MustParseClockTime(at),
		ParticipantsCount: participants,
		CustomerName:      "Ivan",
	}
}

func slotTimes(slots []models.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Time.String())
	}
	return out
}

// slotCacheOrNil keeps a nil *MemorySlotCache from becoming a non-nil interface.
func slotCacheOrNil(c *repository.MemorySlotCache) domain.SlotCache {
	if c == nil {
		return nil
	}
	return c
}
