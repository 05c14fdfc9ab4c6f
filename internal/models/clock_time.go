package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// ClockTime is a wall-clock time of day stored as seconds since midnight.
// It carries no date and no timezone.
type ClockTime int

// EndOfDay is 24:00:00. It is only meaningful as the end of a window.
const EndOfDay = ClockTime(secondsPerDay)

// NewClockTime builds a ClockTime from hours, minutes and seconds.
func NewClockTime(hour, minute, second int) ClockTime {
	return ClockTime(hour*3600 + minute*60 + second)
}

// ParseClockTime accepts "HH:MM" or "HH:MM:SS" in 24-hour notation.
// "24:00" and "24:00:00" parse to EndOfDay.
func ParseClockTime(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM or HH:MM:SS", s)
	}

	limits := []int{24, 59, 59}
	values := make([]int, 3)
	for i, p := range parts {
		if len(p) != 2 {
			return 0, fmt.Errorf("invalid time %q: expected two digits per field", s)
		}
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > limits[i] {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		values[i] = v
	}

	t := NewClockTime(values[0], values[1], values[2])
	if t > EndOfDay {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return t, nil
}

// MustParseClockTime is ParseClockTime for constants and tests.
func MustParseClockTime(s string) ClockTime {
	t, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t ClockTime) Hour() int   { return int(t) / 3600 }
func (t ClockTime) Minute() int { return int(t) % 3600 / 60 }
func (t ClockTime) Second() int { return int(t) % 60 }

// AddMinutes advances the time in 24-hour arithmetic, wrapping past midnight.
func (t ClockTime) AddMinutes(minutes int) ClockTime {
	v := (int(t) + minutes*60) % secondsPerDay
	if v < 0 {
		v += secondsPerDay
	}
	return ClockTime(v)
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// On places the wall-clock time on the given calendar date in loc.
func (t ClockTime) On(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, loc)
}

func (t ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("clock time must be a string: %w", err)
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t ClockTime) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// UnmarshalYAML uses the callback signature understood by both yaml.v2 and yaml.v3.
func (t *ClockTime) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value stores the time as zero-padded TEXT so that lexical order matches time order.
func (t ClockTime) Value() (driver.Value, error) {
	return t.String(), nil
}

func (t *ClockTime) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into ClockTime", src)
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
