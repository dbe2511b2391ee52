package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidWeekday = errors.New("invalid weekday")

// Weekday is a day of the teaching week. Monday sorts first.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{
	Monday:    "monday",
	Tuesday:   "tuesday",
	Wednesday: "wednesday",
	Thursday:  "thursday",
	Friday:    "friday",
	Saturday:  "saturday",
	Sunday:    "sunday",
}

// AllWeekdays lists every weekday in sort order.
func AllWeekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// IsValid checks if the weekday is one of the seven known values.
func (d Weekday) IsValid() bool {
	return d >= Monday && d <= Sunday
}

func (d Weekday) String() string {
	if !d.IsValid() {
		return fmt.Sprintf("weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// TimeWeekday converts to the standard library representation.
func (d Weekday) TimeWeekday() time.Weekday {
	// time.Weekday counts from Sunday = 0.
	return time.Weekday((int(d) + 1) % 7)
}

// WeekdayFromTime converts a standard library weekday.
func WeekdayFromTime(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

// ParseWeekday accepts full names and three-letter abbreviations, ignoring case.
func ParseWeekday(value string) (Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for i, name := range weekdayNames {
		if v == name || (len(v) == 3 && strings.HasPrefix(name, v)) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, value)
}
