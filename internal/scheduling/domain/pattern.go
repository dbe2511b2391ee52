package domain

import (
	"errors"
	"fmt"
	"slices"

	"github.com/samber/mo"
)

var (
	ErrInvalidPattern   = errors.New("invalid meeting pattern")
	ErrMissingDayOfWeek = errors.New("single meeting pattern requires a day of week")
)

// MeetingPattern is a named weekly recurrence.
type MeetingPattern string

const (
	PatternSingle                MeetingPattern = "single"
	PatternMondayWednesdayFriday MeetingPattern = "monday-wednesday-friday"
	PatternTuesdayThursday       MeetingPattern = "tuesday-thursday"
	PatternMondayWednesday       MeetingPattern = "monday-wednesday"
	PatternTuesdayFriday         MeetingPattern = "tuesday-friday"
	PatternWeekly                MeetingPattern = "weekly"

	// PatternCustom is only ever derived from existing meetings; it cannot be expanded.
	PatternCustom MeetingPattern = "custom"
)

// patternDays is the fixed expansion table. Every entry is non-empty and ordered.
var patternDays = map[MeetingPattern][]Weekday{
	PatternMondayWednesdayFriday: {Monday, Wednesday, Friday},
	PatternTuesdayThursday:       {Tuesday, Thursday},
	PatternMondayWednesday:       {Monday, Wednesday},
	PatternTuesdayFriday:         {Tuesday, Friday},
	PatternWeekly:                {Monday, Tuesday, Wednesday, Thursday, Friday},
}

// Patterns lists the recognised pattern names in presentation order.
func Patterns() []MeetingPattern {
	return []MeetingPattern{
		PatternSingle,
		PatternMondayWednesdayFriday,
		PatternTuesdayThursday,
		PatternMondayWednesday,
		PatternTuesdayFriday,
		PatternWeekly,
	}
}

// IsValid checks if the pattern can be expanded.
func (p MeetingPattern) IsValid() bool {
	if p == PatternSingle {
		return true
	}
	_, ok := patternDays[p]
	return ok
}

// ExpandPattern resolves a pattern to the weekdays it meets on.
// explicitDay is consulted only for the single pattern.
func ExpandPattern(pattern MeetingPattern, explicitDay mo.Option[Weekday]) ([]Weekday, error) {
	if pattern == PatternSingle {
		day, ok := explicitDay.Get()
		if !ok {
			return nil, ErrMissingDayOfWeek
		}
		if !day.IsValid() {
			return nil, fmt.Errorf("%w: %d", ErrInvalidWeekday, int(day))
		}
		return []Weekday{day}, nil
	}

	days, ok := patternDays[pattern]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, string(pattern))
	}
	return slices.Clone(days), nil
}

// DerivePatternLabel projects a set of meeting days back onto a pattern name.
// A lone day is single, a known day set is its pattern, anything else is custom.
// A day that meets more than once can never come from an expansion, so it is custom.
func DerivePatternLabel(days []Weekday) MeetingPattern {
	if len(days) == 0 {
		return ""
	}

	normalized := slices.Clone(days)
	slices.Sort(normalized)
	normalized = slices.Compact(normalized)
	if len(normalized) != len(days) {
		return PatternCustom
	}

	if len(normalized) == 1 {
		return PatternSingle
	}
	for _, pattern := range Patterns() {
		if slices.Equal(patternDays[pattern], normalized) {
			return pattern
		}
	}
	return PatternCustom
}
