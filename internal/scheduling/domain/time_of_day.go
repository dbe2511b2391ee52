package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidTimeOfDay = errors.New("time of day must be HH:MM or HH:MM:SS within 24 hours")
	ErrInvalidTimeRange = errors.New("start time must be before end time")
)

const secondsPerDay = 24 * 60 * 60

// TimeOfDay is a naive wall-clock time stored as seconds since midnight.
// There is no timezone; comparisons are plain integer comparisons.
type TimeOfDay int

// NewTimeOfDay builds a time of day from its components.
func NewTimeOfDay(hour, minute, second int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return 0, ErrInvalidTimeOfDay
	}
	return TimeOfDay(hour*3600 + minute*60 + second), nil
}

// MustTimeOfDay parses value and panics on error. Intended for tests and constants.
func MustTimeOfDay(value string) TimeOfDay {
	t, err := ParseTimeOfDay(value)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		// Hours may be a single digit ("9:30"); minutes and seconds may not.
		if len(p) == 0 || len(p) > 2 || (i > 0 && len(p) != 2) || !allDigits(p) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
		}
		nums[i] = n
	}

	t, err := NewTimeOfDay(nums[0], nums[1], nums[2])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	return t, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) % 3600 / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

// Seconds returns the number of seconds since midnight.
func (t TimeOfDay) Seconds() int { return int(t) }

// IsValid reports whether t falls inside a single day.
func (t TimeOfDay) IsValid() bool {
	return t >= 0 && t < secondsPerDay
}

// Before reports whether t is strictly earlier than other.
func (t TimeOfDay) Before(other TimeOfDay) bool { return t < other }

// Duration returns the elapsed time from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Second
}

// On returns the instant at this time of day on the given date.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, date.Location())
}

// String renders HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// TimeSlot is a half-open [Start, End) interval within one day.
type TimeSlot struct {
	Start TimeOfDay
	End   TimeOfDay
}

// NewTimeSlot validates that start < end and both lie within the day.
func NewTimeSlot(start, end TimeOfDay) (TimeSlot, error) {
	if !start.IsValid() || !end.IsValid() {
		return TimeSlot{}, ErrInvalidTimeOfDay
	}
	if !start.Before(end) {
		return TimeSlot{}, ErrInvalidTimeRange
	}
	return TimeSlot{Start: start, End: end}, nil
}

// Overlaps checks if two slots intersect. Touching endpoints do not overlap.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s.Start < other.End && s.End > other.Start
}

// Duration returns the length of the slot.
func (s TimeSlot) Duration() time.Duration {
	return (s.End - s.Start).Duration()
}

func (s TimeSlot) String() string {
	return s.Start.String() + "-" + s.End.String()
}
