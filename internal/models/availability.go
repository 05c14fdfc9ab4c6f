package models

import "time"

// AvailabilityWindow is a recurring weekly range during which a service may be booked.
type AvailabilityWindow struct {
	ID            int64     `yaml:"id" json:"id"`
	ServiceID     int64     `yaml:"service_id" json:"service_id"`
	DayOfWeek     int       `yaml:"day_of_week" json:"day_of_week"` // 0-6 (Sunday-Saturday)
	StartTime     ClockTime `yaml:"start_time" json:"start_time"`
	EndTime       ClockTime `yaml:"end_time" json:"end_time"`
	StaffMemberID *int64    `yaml:"staff_member_id" json:"staff_member_id,omitempty"`
	IsActive      bool      `yaml:"is_active" json:"is_active"`
	CreatedAt     time.Time `yaml:"-" json:"created_at"`
	UpdatedAt     time.Time `yaml:"-" json:"updated_at"`
}

// Contains reports whether t falls in [StartTime, EndTime).
func (w *AvailabilityWindow) Contains(t ClockTime) bool {
	return t >= w.StartTime && t < w.EndTime
}

// Overlaps reports whether two windows share the same scope and intersect.
func (w *AvailabilityWindow) Overlaps(o *AvailabilityWindow) bool {
	if w.ServiceID != o.ServiceID || w.DayOfWeek != o.DayOfWeek || !SameStaff(w.StaffMemberID, o.StaffMemberID) {
		return false
	}
	return w.StartTime < o.EndTime && o.StartTime < w.EndTime
}

// Slot is one bookable start time produced from a window.
type Slot struct {
	Time            ClockTime `json:"time"`
	EndTime         ClockTime `json:"end_time"`
	AvailableSpots  int       `json:"available_spots"`
	MaxParticipants int       `json:"max_participants"`
}

// SlotCheck answers whether an exact slot can take another booking.
type SlotCheck struct {
	Available      bool   `json:"available"`
	Reason         string `json:"reason,omitempty"`
	AvailableSpots *int   `json:"available_spots,omitempty"`
}

// DayAvailability summarises the slots of one calendar date.
type DayAvailability struct {
	Date           time.Time `json:"date"`
	DayOfWeek      int       `json:"day_of_week"`
	Slots          []Slot    `json:"slots"`
	AvailableSpots int       `json:"available_spots"`
}

// SlotKey identifies the contended capacity of a single slot.
type SlotKey struct {
	ServiceID     int64
	StaffMemberID *int64
	Date          time.Time
	Time          ClockTime
}

// SameStaff compares optional staff member ids, treating two nils as equal.
func SameStaff(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// DayOfWeek numbers days Sunday-first, matching how windows are authored.
func DayOfWeek(date time.Time) int {
	return int(date.Weekday())
}

// DateOnly strips the clock part, keeping the calendar date as UTC midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateFormat, s, time.UTC)
}
