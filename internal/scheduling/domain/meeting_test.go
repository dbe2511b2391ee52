package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inPerson(t *testing.T, room string) Location {
	t.Helper()
	loc, err := NewLocation(LocationInPerson, &room, nil)
	require.NoError(t, err)
	return loc
}

func virtual(t *testing.T, url string) Location {
	t.Helper()
	loc, err := NewLocation(LocationVirtual, nil, &url)
	require.NoError(t, err)
	return loc
}

func slotOf(start, end string) TimeSlot {
	return TimeSlot{Start: MustTimeOfDay(start), End: MustTimeOfDay(end)}
}

func newTestMeeting(t *testing.T, section string, day Weekday, start, end string, loc Location) *Meeting {
	t.Helper()
	m, err := NewMeeting(section, day, slotOf(start, end), loc, "")
	require.NoError(t, err)
	return m
}

func TestNewMeeting(t *testing.T) {
	m, err := NewMeeting(" SEC-01 ", Tuesday, slotOf("13:00", "14:15"), inPerson(t, "R1"), "tuesday-thursday")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, m.ID())
	assert.Equal(t, "SEC-01", m.SectionID())
	assert.Equal(t, Tuesday, m.Weekday())
	assert.Equal(t, "13:00:00", m.Start().String())
	assert.Equal(t, "14:15:00", m.End().String())
	assert.Equal(t, "R1", m.RoomID().OrEmpty())
	assert.True(t, m.MeetingURL().IsAbsent())
	assert.Equal(t, "tuesday-thursday", m.PatternLabel())

	events := m.DomainEvents()
	require.Len(t, events, 1)
	scheduled, ok := events[0].(*MeetingScheduled)
	require.True(t, ok)
	assert.Equal(t, RoutingKeyMeetingScheduled, scheduled.RoutingKey())
	assert.Equal(t, m.ID().String(), scheduled.AggregateID())
	assert.Equal(t, "tuesday", scheduled.Placement.Weekday)
}

func TestNewMeeting_Validation(t *testing.T) {
	_, err := NewMeeting("  ", Monday, slotOf("09:00", "10:00"), inPerson(t, "R1"), "")
	assert.ErrorIs(t, err, ErrMeetingEmptySection)

	_, err = NewMeeting("S", Weekday(7), slotOf("09:00", "10:00"), inPerson(t, "R1"), "")
	assert.ErrorIs(t, err, ErrInvalidWeekday)

	_, err = NewMeeting("S", Monday, slotOf("10:00", "09:00"), inPerson(t, "R1"), "")
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = NewMeeting("S", Monday, slotOf("09:00", "10:00"), Location{Type: LocationInPerson}, "")
	assert.ErrorIs(t, err, ErrInvalidLocation)
}

func TestMeeting_Apply(t *testing.T) {
	m := newTestMeeting(t, "S", Monday, "09:00", "10:00", inPerson(t, "R1"))
	m.PullDomainEvents()

	day := Wednesday
	end := MustTimeOfDay("10:30")
	require.NoError(t, m.Apply(MeetingChanges{Weekday: &day, End: &end}))

	assert.Equal(t, Wednesday, m.Weekday())
	assert.Equal(t, "09:00:00-10:30:00", m.Slot().String())

	events := m.PullDomainEvents()
	require.Len(t, events, 1)
	moved, ok := events[0].(*MeetingRescheduled)
	require.True(t, ok)
	assert.Equal(t, "monday", moved.Previous.Weekday)
	assert.Equal(t, "wednesday", moved.Current.Weekday)
	assert.Equal(t, "10:30:00", moved.Current.End)
}

func TestMeeting_Apply_LabelOnlyDoesNotReschedule(t *testing.T) {
	m := newTestMeeting(t, "S", Monday, "09:00", "10:00", inPerson(t, "R1"))
	m.PullDomainEvents()

	label := "lab"
	require.NoError(t, m.Apply(MeetingChanges{PatternLabel: &label}))

	assert.Equal(t, "lab", m.PatternLabel())
	assert.Empty(t, m.PullDomainEvents())
}

func TestMeeting_Apply_RejectsInvalidAndKeepsState(t *testing.T) {
	m := newTestMeeting(t, "S", Monday, "09:00", "10:00", inPerson(t, "R1"))

	start := MustTimeOfDay("11:00")
	err := m.Apply(MeetingChanges{Start: &start})

	assert.ErrorIs(t, err, ErrInvalidTimeRange)
	assert.Equal(t, "09:00:00", m.Start().String())
}

func TestMeeting_MarkRemoved(t *testing.T) {
	m := newTestMeeting(t, "S", Friday, "09:00", "10:00", virtual(t, "https://meet.example/x"))
	m.PullDomainEvents()

	m.MarkRemoved()

	events := m.PullDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, RoutingKeyMeetingRemoved, events[0].RoutingKey())
}

func TestRehydrateMeeting(t *testing.T) {
	id := uuid.New()
	created := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	m := RehydrateMeeting(id, "S", Thursday, slotOf("08:00", "09:00"), inPerson(t, "R2"), "tuesday-thursday", created, created)

	assert.Equal(t, id, m.ID())
	assert.Equal(t, created, m.CreatedAt())
	assert.Empty(t, m.DomainEvents())
}

func TestDerivedPatternLabel(t *testing.T) {
	meetings := []*Meeting{
		newTestMeeting(t, "S", Thursday, "13:00", "14:15", inPerson(t, "R1")),
		newTestMeeting(t, "S", Tuesday, "13:00", "14:15", inPerson(t, "R1")),
	}
	assert.Equal(t, PatternTuesdayThursday, DerivedPatternLabel(meetings))
	assert.Equal(t, MeetingPattern(""), DerivedPatternLabel(nil))

	twiceMonday := []*Meeting{
		newTestMeeting(t, "S", Monday, "09:00", "10:00", inPerson(t, "R1")),
		newTestMeeting(t, "S", Monday, "14:00", "15:00", inPerson(t, "R1")),
	}
	assert.Equal(t, PatternCustom, DerivedPatternLabel(twiceMonday))
}
