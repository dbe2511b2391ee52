package queries

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/felixgeelhaar/classplan/internal/scheduling/domain"
	"github.com/teambition/rrule-go"
)

var ErrInvalidTerm = errors.New("term end must not be before term start")

const productID = "-//classplan//Section Calendar//EN"

var rruleWeekdays = map[domain.Weekday]rrule.Weekday{
	domain.Monday:    rrule.MO,
	domain.Tuesday:   rrule.TU,
	domain.Wednesday: rrule.WE,
	domain.Thursday:  rrule.TH,
	domain.Friday:    rrule.FR,
	domain.Saturday:  rrule.SA,
	domain.Sunday:    rrule.SU,
}

// ExportSectionCalendarQuery contains the parameters for a calendar export.
// Only the dates of TermStart and TermEnd are used; both are inclusive.
type ExportSectionCalendarQuery struct {
	SectionID string
	TermStart time.Time
	TermEnd   time.Time
	// Location interprets the naive meeting times. Defaults to UTC.
	Location *time.Location
}

// CalendarExportDTO is the encoded iCalendar document.
type CalendarExportDTO struct {
	SectionID  string
	EventCount int
	// Skipped counts meetings whose weekday never falls inside the term.
	Skipped int
	Data    []byte
}

// ExportSectionCalendarHandler renders a section's week as recurring events.
type ExportSectionCalendarHandler struct {
	repo domain.MeetingRepository
	now  func() time.Time
}

// NewExportSectionCalendarHandler creates a new ExportSectionCalendarHandler.
func NewExportSectionCalendarHandler(repo domain.MeetingRepository) *ExportSectionCalendarHandler {
	return &ExportSectionCalendarHandler{repo: repo, now: time.Now}
}

// Handle executes the ExportSectionCalendarQuery.
func (h *ExportSectionCalendarHandler) Handle(ctx context.Context, query ExportSectionCalendarQuery) (*CalendarExportDTO, error) {
	sectionID := strings.TrimSpace(query.SectionID)
	if sectionID == "" {
		return nil, ErrSectionRequired
	}
	loc := query.Location
	if loc == nil {
		loc = time.UTC
	}
	termStart := dateIn(query.TermStart, loc)
	termEnd := dateIn(query.TermEnd, loc)
	if termEnd.Before(termStart) {
		return nil, ErrInvalidTerm
	}
	// UNTIL is inclusive, so the last instant of the final day still counts.
	until := termEnd.AddDate(0, 0, 1).Add(-time.Second)

	meetings, err := h.repo.FindBySection(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropVersion, "2.0")

	stamp := h.now().UTC()
	result := &CalendarExportDTO{SectionID: sectionID}
	for _, m := range meetings {
		opt := rrule.ROption{
			Freq:      rrule.WEEKLY,
			Byweekday: []rrule.Weekday{rruleWeekdays[m.Weekday()]},
			Dtstart:   m.Start().On(termStart),
			Until:     until,
		}
		rule, err := rrule.NewRRule(opt)
		if err != nil {
			return nil, fmt.Errorf("recurrence for meeting %s: %w", m.ID(), err)
		}
		occurrences := rule.All()
		if len(occurrences) == 0 {
			result.Skipped++
			continue
		}

		cal.Children = append(cal.Children, meetingEvent(m, occurrences[0], opt.RRuleString(), stamp).Component)
		result.EventCount++
	}

	// Local DTSTART/DTEND carry a TZID, which must resolve inside the document.
	if loc != time.UTC && result.EventCount > 0 {
		cal.Children = append([]*ical.Component{timezoneComponent(loc, termStart, until)}, cal.Children...)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	result.Data = buf.Bytes()
	return result, nil
}

func meetingEvent(m *domain.Meeting, first time.Time, rule string, stamp time.Time) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, m.ID().String()+"@classplan")
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	event.Props.SetDateTime(ical.PropDateTimeStart, first)
	event.Props.SetDateTime(ical.PropDateTimeEnd, first.Add(m.Slot().Duration()))
	event.Props.SetText(ical.PropSummary, m.SectionID())

	recurrence := ical.NewProp(ical.PropRecurrenceRule)
	recurrence.Value = rule
	event.Props.Set(recurrence)

	if room, ok := m.RoomID().Get(); ok {
		event.Props.SetText(ical.PropLocation, room)
	}
	if url, ok := m.MeetingURL().Get(); ok {
		link := ical.NewProp(ical.PropURL)
		link.Value = url
		event.Props.Set(link)
	}

	description := fmt.Sprintf("%s meeting", m.LocationType())
	if label := m.PatternLabel(); label != "" {
		description += " (" + label + ")"
	}
	event.Props.SetText(ical.PropDescription, description)
	return event
}

func dateIn(t time.Time, loc *time.Location) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, loc)
}
