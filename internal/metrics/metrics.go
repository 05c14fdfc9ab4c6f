package metrics

import (
	"sync"

	"bookable/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bookable"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Booking lifecycle events by event type.",
		},
		[]string{"event"},
	)

	bookingRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_rejections_total",
			Help:      "Rejected booking mutations by error code.",
		},
		[]string{"reason"},
	)

	slotCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_cache_lookups_total",
			Help:      "Slot cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingTransitions, bookingRejections, slotCacheLookups)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncRejection counts a refused booking mutation.
func IncRejection(reason string) {
	bookingRejections.WithLabelValues(reason).Inc()
}

// IncCacheLookup counts a slot cache lookup outcome.
func IncCacheLookup(result string) {
	slotCacheLookups.WithLabelValues(result).Inc()
}

// SubscribeBookingEvents counts lifecycle events published on the bus.
func SubscribeBookingEvents(bus *events.EventBus) {
	if bus == nil {
		return
	}
	bus.SubscribeMany(events.BookingEvents, func(e *events.Event) error {
		bookingTransitions.WithLabelValues(e.Type).Inc()
		return nil
	})
}
