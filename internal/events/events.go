package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingConfirmed = "booking_confirmed"
	EventBookingCanceled  = "booking_canceled"
	EventBookingCompleted = "booking_completed"
	EventBookingNoShow    = "booking_no_show"
	EventCalendarChanged  = "calendar_changed"
	EventCatalogChanged   = "catalog_changed"
)

// BookingEvents lists every booking lifecycle event type.
var BookingEvents = []string{
	EventBookingCreated,
	EventBookingConfirmed,
	EventBookingCanceled,
	EventBookingCompleted,
	EventBookingNoShow,
}

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID         int64  `json:"booking_id"`
	ServiceID         int64  `json:"service_id"`
	ServiceName       string `json:"service_name,omitempty"`
	StaffMemberID     *int64 `json:"staff_member_id,omitempty"`
	Date              string `json:"date"`
	Time              string `json:"time"`
	ParticipantsCount int    `json:"participants_count"`
	Status            string `json:"status"`
	PreviousStatus    string `json:"previous_status,omitempty"`
	Reason            string `json:"reason,omitempty"`
	CustomerName      string `json:"customer_name,omitempty"`
}

// ScheduleEventPayload announces a catalog or calendar edit.
type ScheduleEventPayload struct {
	ServiceID int64  `json:"service_id"`
	WindowID  int64  `json:"window_id,omitempty"`
	Action    string `json:"action"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
	Processed bool
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeMany registers one handler for several event types.
func (b *EventBus) SubscribeMany(eventTypes []string, handler EventHandler) {
	for _, t := range eventTypes {
		b.Subscribe(t, handler)
	}
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}
