package models

import "time"

// ServiceDefinition holds the scheduling parameters of one bookable service.
//
// AdvanceBookingDays bounds how many days past today a booking may be made.
// Zero disables the bound; it does not mean same-day only.
type ServiceDefinition struct {
	ID                        int64     `yaml:"id" json:"id"`
	Name                      string    `yaml:"name" json:"name"`
	Description               string    `yaml:"description" json:"description"`
	DurationMinutes           int       `yaml:"duration_minutes" json:"duration_minutes"`
	MaxParticipants           int       `yaml:"max_participants" json:"max_participants"`
	BufferBeforeMinutes       int       `yaml:"buffer_before_minutes" json:"buffer_before_minutes"`
	BufferAfterMinutes        int       `yaml:"buffer_after_minutes" json:"buffer_after_minutes"`
	AdvanceBookingDays        int       `yaml:"advance_booking_days" json:"advance_booking_days"` // 0 = unlimited
	CancellationDeadlineHours int       `yaml:"cancellation_deadline_hours" json:"cancellation_deadline_hours"`
	RequiresApproval          bool      `yaml:"requires_approval" json:"requires_approval"`
	AllowCancellation         bool      `yaml:"allow_cancellation" json:"allow_cancellation"`
	RequiresStaff             bool      `yaml:"requires_staff" json:"requires_staff"`
	MaxBookingsPerDay         int       `yaml:"max_bookings_per_day" json:"max_bookings_per_day"` // 0 = no cap
	Timezone                  string    `yaml:"timezone" json:"timezone"`
	IsActive                  bool      `yaml:"is_active" json:"is_active"`
	CreatedAt                 time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt                 time.Time `yaml:"updated_at" json:"updated_at"`
}

// NewServiceDefinition returns the defaults for flags a caller leaves out:
// the service is active and bookings on it can be cancelled.
func NewServiceDefinition() ServiceDefinition {
	return ServiceDefinition{AllowCancellation: true, IsActive: true}
}

// UnmarshalYAML starts from NewServiceDefinition so that catalog entries
// without allow_cancellation or is_active keep the defaults.
func (s *ServiceDefinition) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain ServiceDefinition
	def := plain(NewServiceDefinition())
	if err := unmarshal(&def); err != nil {
		return err
	}
	*s = ServiceDefinition(def)
	return nil
}

// Location resolves the service timezone, falling back to def.
func (s *ServiceDefinition) Location(def *time.Location) (*time.Location, error) {
	if s.Timezone == "" {
		if def == nil {
			return time.UTC, nil
		}
		return def, nil
	}
	return time.LoadLocation(s.Timezone)
}

// Clone returns a snapshot that callers may keep for the duration of a query.
func (s *ServiceDefinition) Clone() *ServiceDefinition {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// StaffMember partitions service capacity when the service requires staff.
type StaffMember struct {
	ID        int64     `yaml:"id" json:"id"`
	ServiceID int64     `yaml:"service_id" json:"service_id"`
	Name      string    `yaml:"name" json:"name"`
	IsActive  bool      `yaml:"is_active" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
