package models

import "time"

type Booking struct {
	ID                 int64     `json:"id"`
	ServiceID          int64     `json:"service_id"`
	StaffMemberID      *int64    `json:"staff_member_id,omitempty"`
	Date               time.Time `json:"date"`
	Time               ClockTime `json:"time"`
	ParticipantsCount  int       `json:"participants_count"`
	Status             string    `json:"status"` // pending, confirmed, completed, cancelled, no_show
	CancellationReason string    `json:"cancellation_reason,omitempty"`
	CustomerName       string    `json:"customer_name"`
	CustomerPhone      string    `json:"customer_phone,omitempty"`
	Comment            string    `json:"comment,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Version            int64     `json:"version"`
}

// Key returns the capacity key the booking counts against.
func (b *Booking) Key() SlotKey {
	return SlotKey{
		ServiceID:     b.ServiceID,
		StaffMemberID: b.StaffMemberID,
		Date:          b.Date,
		Time:          b.Time,
	}
}

// StartsAt places the booking on the timeline of loc.
func (b *Booking) StartsAt(loc *time.Location) time.Time {
	return b.Time.On(b.Date, loc)
}

// CapacityLimits are re-checked inside the transaction that inserts a booking.
type CapacityLimits struct {
	MaxParticipants   int
	MaxBookingsPerDay int
}

// BookingFilter narrows booking listings. Zero values mean "any".
type BookingFilter struct {
	ServiceID     int64
	StaffMemberID *int64
	From          time.Time
	To            time.Time
	Statuses      []string
	Limit         int
}
