package domain

import (
	"fmt"
	"time"

	"bookable/internal/models"
)

// SlotCacheKey identifies one generated slot list.
type SlotCacheKey struct {
	ServiceID     int64
	StaffMemberID *int64
	Date          time.Time
	Generation    string
}

// String renders "slots:<service>:<date>:<staff|->:<generation>".
// Service and date lead so prefix invalidation can match them.
func (k SlotCacheKey) String() string {
	staff := "-"
	if k.StaffMemberID != nil {
		staff = fmt.Sprintf("%d", *k.StaffMemberID)
	}
	return fmt.Sprintf("%s%s:%s", DatePrefix(k.ServiceID, k.Date), staff, k.Generation)
}

// ServicePrefix matches every cached list of a service.
func ServicePrefix(serviceID int64) string {
	return fmt.Sprintf("slots:%d:", serviceID)
}

// DatePrefix matches every cached list of a service on one date.
func DatePrefix(serviceID int64, date time.Time) string {
	return fmt.Sprintf("%s%s:", ServicePrefix(serviceID), date.Format(models.DateFormat))
}
