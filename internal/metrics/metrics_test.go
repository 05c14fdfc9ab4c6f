package metrics

import (
	"testing"

	"bookable/internal/events"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	before := counterValue(t, bookingRejections.WithLabelValues("capacity_exceeded"))
	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
		IncRejection("capacity_exceeded")
		IncCacheLookup("hit")
	})
	assert.Equal(t, before+1, counterValue(t, bookingRejections.WithLabelValues("capacity_exceeded")))
}

func TestSubscribeBookingEvents(t *testing.T) {
	bus := events.NewEventBus()
	SubscribeBookingEvents(bus)
	SubscribeBookingEvents(nil)

	before := counterValue(t, bookingTransitions.WithLabelValues(events.EventBookingNoShow))
	_ = bus.PublishJSON(events.EventBookingNoShow, events.BookingEventPayload{BookingID: 1})

	assert.Equal(t, before+1, counterValue(t, bookingTransitions.WithLabelValues(events.EventBookingNoShow)))
}
