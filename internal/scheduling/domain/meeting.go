package domain

import (
	"errors"
	"strings"
	"time"

	sharedDomain "github.com/felixgeelhaar/classplan/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/samber/mo"
)

var (
	ErrMeetingEmptySection = errors.New("meeting section id cannot be empty")
	ErrMeetingNotFound     = errors.New("meeting not found")
)

// Meeting is one weekly class occurrence of a section.
// It references its section and room by identifier only.
type Meeting struct {
	sharedDomain.BaseAggregateRoot
	sectionID    string
	weekday      Weekday
	slot         TimeSlot
	location     Location
	patternLabel string
}

// NewMeeting validates and creates a meeting, recording a MeetingScheduled event.
func NewMeeting(sectionID string, weekday Weekday, slot TimeSlot, location Location, patternLabel string) (*Meeting, error) {
	sectionID = strings.TrimSpace(sectionID)
	if sectionID == "" {
		return nil, ErrMeetingEmptySection
	}
	if err := validatePlacement(weekday, slot, location); err != nil {
		return nil, err
	}

	m := &Meeting{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		sectionID:         sectionID,
		weekday:           weekday,
		slot:              slot,
		location:          location,
		patternLabel:      strings.TrimSpace(patternLabel),
	}
	m.AddDomainEvent(NewMeetingScheduled(m))
	return m, nil
}

// RehydrateMeeting recreates a meeting from persisted state without validation or events.
func RehydrateMeeting(
	id uuid.UUID,
	sectionID string,
	weekday Weekday,
	slot TimeSlot,
	location Location,
	patternLabel string,
	createdAt, updatedAt time.Time,
) *Meeting {
	entity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	return &Meeting{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(entity),
		sectionID:         sectionID,
		weekday:           weekday,
		slot:              slot,
		location:          location,
		patternLabel:      patternLabel,
	}
}

func (m *Meeting) SectionID() string          { return m.sectionID }
func (m *Meeting) Weekday() Weekday           { return m.weekday }
func (m *Meeting) Slot() TimeSlot             { return m.slot }
func (m *Meeting) Start() TimeOfDay           { return m.slot.Start }
func (m *Meeting) End() TimeOfDay             { return m.slot.End }
func (m *Meeting) Location() Location         { return m.location }
func (m *Meeting) PatternLabel() string       { return m.patternLabel }
func (m *Meeting) HasRoom() bool              { return m.location.HasRoom() }
func (m *Meeting) LocationType() LocationType { return m.location.Type }

// RoomID returns the booked room, if any.
func (m *Meeting) RoomID() mo.Option[string] {
	if m.location.RoomID == nil {
		return mo.None[string]()
	}
	return mo.Some(*m.location.RoomID)
}

// MeetingURL returns the online meeting link, if any.
func (m *Meeting) MeetingURL() mo.Option[string] {
	if m.location.URL == nil {
		return mo.None[string]()
	}
	return mo.Some(*m.location.URL)
}

// MeetingChanges describes a direct field update. Nil fields are left untouched.
type MeetingChanges struct {
	Weekday      *Weekday
	Start        *TimeOfDay
	End          *TimeOfDay
	Location     *Location
	PatternLabel *string
}

// IsEmpty reports whether no field would change.
func (c MeetingChanges) IsEmpty() bool {
	return c.Weekday == nil && c.Start == nil && c.End == nil && c.Location == nil && c.PatternLabel == nil
}

// Apply validates and applies the changes. A MeetingRescheduled event is
// recorded when the day, time or location moves.
func (m *Meeting) Apply(changes MeetingChanges) error {
	weekday := m.weekday
	if changes.Weekday != nil {
		weekday = *changes.Weekday
	}
	slot := m.slot
	if changes.Start != nil {
		slot.Start = *changes.Start
	}
	if changes.End != nil {
		slot.End = *changes.End
	}
	location := m.location
	if changes.Location != nil {
		location = *changes.Location
	}
	if err := validatePlacement(weekday, slot, location); err != nil {
		return err
	}

	previous := *m
	moved := weekday != m.weekday || slot != m.slot || !sameLocation(location, m.location)

	m.weekday = weekday
	m.slot = slot
	m.location = location
	if changes.PatternLabel != nil {
		m.patternLabel = strings.TrimSpace(*changes.PatternLabel)
	}
	m.Touch()

	if moved {
		m.AddDomainEvent(NewMeetingRescheduled(&previous, m))
	}
	return nil
}

// MarkRemoved records that the meeting is being deleted.
func (m *Meeting) MarkRemoved() {
	m.AddDomainEvent(NewMeetingRemoved(m))
}

func validatePlacement(weekday Weekday, slot TimeSlot, location Location) error {
	if !weekday.IsValid() {
		return ErrInvalidWeekday
	}
	if _, err := NewTimeSlot(slot.Start, slot.End); err != nil {
		return err
	}
	if _, err := NewLocation(location.Type, location.RoomID, location.URL); err != nil {
		return err
	}
	return nil
}

func sameLocation(a, b Location) bool {
	return a.Type == b.Type && equalOptional(a.RoomID, b.RoomID) && equalOptional(a.URL, b.URL)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// DerivedPatternLabel projects the weekdays of a section's meetings onto a pattern name.
func DerivedPatternLabel(meetings []*Meeting) MeetingPattern {
	days := make([]Weekday, 0, len(meetings))
	for _, m := range meetings {
		days = append(days, m.weekday)
	}
	return DerivePatternLabel(days)
}
