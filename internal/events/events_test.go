package events

import (
	"testing"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	handler := func(event *Event) error {
		received = event
		callCount++
		return nil
	}

	bus.Subscribe(EventBookingCreated, handler)

	payload := BookingEventPayload{BookingID: 7, ServiceID: 2, Status: "confirmed", Date: "2026-01-05", Time: "10:00:00"}
	err := bus.PublishJSON(EventBookingCreated, payload)
	if err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}

	if received.Type != EventBookingCreated {
		t.Errorf("expected type %s, got %s", EventBookingCreated, received.Type)
	}

	var decoded BookingEventPayload
	if err := received.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}

	if decoded.BookingID != 7 || decoded.Time != "10:00:00" {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestEventBusSubscribeMany(t *testing.T) {
	bus := NewEventBus()
	var count int

	bus.SubscribeMany(BookingEvents, func(_ *Event) error { count++; return nil })

	for _, typ := range BookingEvents {
		bus.Publish(&Event{Type: typ})
	}
	bus.Publish(&Event{Type: EventCatalogChanged})

	if count != len(BookingEvents) {
		t.Errorf("expected %d calls, got %d", len(BookingEvents), count)
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	// Should not panic
	bus.Publish(&Event{Type: "unknown"})
	err := bus.PublishJSON("unknown", nil)
	if err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}

	var nilBus *EventBus
	if err := nilBus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("nil bus should be a no-op, got %v", err)
	}
}
