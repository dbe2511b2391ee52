package domain

import (
	sharedDomain "github.com/felixgeelhaar/classplan/internal/shared/domain"
	"github.com/google/uuid"
)

const (
	AggregateType        = "ClassMeeting"
	SectionAggregateType = "Section"

	RoutingKeyMeetingScheduled       = "scheduling.meeting.scheduled"
	RoutingKeyMeetingRescheduled     = "scheduling.meeting.rescheduled"
	RoutingKeyMeetingRemoved         = "scheduling.meeting.removed"
	RoutingKeySectionPatternReplaced = "scheduling.section.pattern_replaced"
)

// MeetingPlacement is the event view of where and when a meeting happens.
type MeetingPlacement struct {
	Weekday      string  `json:"weekday"`
	Start        string  `json:"start"`
	End          string  `json:"end"`
	LocationType string  `json:"location_type"`
	RoomID       *string `json:"room_id,omitempty"`
	MeetingURL   *string `json:"meeting_url,omitempty"`
}

func placementOf(m *Meeting) MeetingPlacement {
	return MeetingPlacement{
		Weekday:      m.Weekday().String(),
		Start:        m.Start().String(),
		End:          m.End().String(),
		LocationType: string(m.LocationType()),
		RoomID:       m.Location().RoomID,
		MeetingURL:   m.Location().URL,
	}
}

// MeetingScheduled is emitted when a meeting is committed.
type MeetingScheduled struct {
	sharedDomain.BaseEvent
	MeetingID    uuid.UUID        `json:"meeting_id"`
	SectionID    string           `json:"section_id"`
	PatternLabel string           `json:"pattern_label,omitempty"`
	Placement    MeetingPlacement `json:"placement"`
}

// NewMeetingScheduled creates a MeetingScheduled event.
func NewMeetingScheduled(m *Meeting) *MeetingScheduled {
	return &MeetingScheduled{
		BaseEvent:    sharedDomain.NewBaseEvent(m.ID().String(), AggregateType, RoutingKeyMeetingScheduled),
		MeetingID:    m.ID(),
		SectionID:    m.SectionID(),
		PatternLabel: m.PatternLabel(),
		Placement:    placementOf(m),
	}
}

// MeetingRescheduled is emitted when a meeting moves day, time or location.
type MeetingRescheduled struct {
	sharedDomain.BaseEvent
	MeetingID uuid.UUID        `json:"meeting_id"`
	SectionID string           `json:"section_id"`
	Previous  MeetingPlacement `json:"previous"`
	Current   MeetingPlacement `json:"current"`
}

// NewMeetingRescheduled creates a MeetingRescheduled event.
func NewMeetingRescheduled(previous, current *Meeting) *MeetingRescheduled {
	return &MeetingRescheduled{
		BaseEvent: sharedDomain.NewBaseEvent(current.ID().String(), AggregateType, RoutingKeyMeetingRescheduled),
		MeetingID: current.ID(),
		SectionID: current.SectionID(),
		Previous:  placementOf(previous),
		Current:   placementOf(current),
	}
}

// MeetingRemoved is emitted when a single meeting is deleted.
type MeetingRemoved struct {
	sharedDomain.BaseEvent
	MeetingID uuid.UUID        `json:"meeting_id"`
	SectionID string           `json:"section_id"`
	Placement MeetingPlacement `json:"placement"`
}

// NewMeetingRemoved creates a MeetingRemoved event.
func NewMeetingRemoved(m *Meeting) *MeetingRemoved {
	return &MeetingRemoved{
		BaseEvent: sharedDomain.NewBaseEvent(m.ID().String(), AggregateType, RoutingKeyMeetingRemoved),
		MeetingID: m.ID(),
		SectionID: m.SectionID(),
		Placement: placementOf(m),
	}
}

// SectionPatternReplaced is emitted after a section's meetings were wiped and re-expanded.
type SectionPatternReplaced struct {
	sharedDomain.BaseEvent
	SectionID    string         `json:"section_id"`
	Pattern      MeetingPattern `json:"pattern"`
	DeletedCount int            `json:"deleted_count"`
	CreatedCount int            `json:"created_count"`
	FailedDays   []string       `json:"failed_days,omitempty"`
}

// NewSectionPatternReplaced creates a SectionPatternReplaced event.
func NewSectionPatternReplaced(sectionID string, pattern MeetingPattern, deleted, created int, failedDays []Weekday) *SectionPatternReplaced {
	failed := make([]string, 0, len(failedDays))
	for _, d := range failedDays {
		failed = append(failed, d.String())
	}
	return &SectionPatternReplaced{
		BaseEvent:    sharedDomain.NewBaseEvent(sectionID, SectionAggregateType, RoutingKeySectionPatternReplaced),
		SectionID:    sectionID,
		Pattern:      pattern,
		DeletedCount: deleted,
		CreatedCount: created,
		FailedDays:   failed,
	}
}
