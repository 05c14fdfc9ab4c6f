package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// ActiveStatuses hold capacity; every other status is terminal.
var ActiveStatuses = []string{StatusPending, StatusConfirmed}

const (
	DateFormat = "2006-01-02"
	TimeFormat = "15:04:05"
)

const (
	// DefaultTimezone is used when neither the service nor the config names one.
	DefaultTimezone = "UTC"

	// DefaultSlotCacheTTL время жизни сгенерированных слотов в кэше, в секундах
	DefaultSlotCacheTTL = 30

	// MaxPeriodDays upper bound for multi-day availability queries
	MaxPeriodDays = 62

	// MaxReasonLength upper bound for cancellation reasons and comments
	MaxReasonLength = 500

	// DefaultBookingsPageSize default limit for booking listings
	DefaultBookingsPageSize = 100
)

const (
	// SlotGenerationLegacy steps windows by duration only and ignores buffers.
	SlotGenerationLegacy = "legacy"
	// SlotGenerationBuffered honours buffer minutes around each slot.
	SlotGenerationBuffered = "buffered"
)

// IsActiveStatus reports whether a booking in this status consumes capacity.
func IsActiveStatus(status string) bool {
	return status == StatusPending || status == StatusConfirmed
}

// IsTerminalStatus reports whether no further transition is possible.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	default:
		return false
	}
}
