package queries

import (
	"context"
	"errors"
	"strings"

	"github.com/felixgeelhaar/classplan/internal/scheduling/domain"
	"github.com/google/uuid"
)

var ErrSectionRequired = errors.New("section id is required")

// MeetingDTO is a data transfer object for a scheduled meeting.
type MeetingDTO struct {
	ID           uuid.UUID
	SectionID    string
	Weekday      string
	Start        string
	End          string
	LocationType string
	RoomID       string
	MeetingURL   string
	PatternLabel string
}

// SectionMeetingsDTO lists a section's meetings with the pattern their days form.
type SectionMeetingsDTO struct {
	SectionID string
	// Pattern is derived from the stored days, never taken from the labels.
	Pattern  string
	Meetings []MeetingDTO
}

// ListSectionMeetingsQuery contains the parameters for listing meetings.
type ListSectionMeetingsQuery struct {
	SectionID string
}

// ListSectionMeetingsHandler handles the ListSectionMeetingsQuery.
type ListSectionMeetingsHandler struct {
	repo domain.MeetingRepository
}

// NewListSectionMeetingsHandler creates a new ListSectionMeetingsHandler.
func NewListSectionMeetingsHandler(repo domain.MeetingRepository) *ListSectionMeetingsHandler {
	return &ListSectionMeetingsHandler{repo: repo}
}

// Handle executes the ListSectionMeetingsQuery.
func (h *ListSectionMeetingsHandler) Handle(ctx context.Context, query ListSectionMeetingsQuery) (*SectionMeetingsDTO, error) {
	sectionID := strings.TrimSpace(query.SectionID)
	if sectionID == "" {
		return nil, ErrSectionRequired
	}

	meetings, err := h.repo.FindBySection(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	dtos := make([]MeetingDTO, len(meetings))
	for i, m := range meetings {
		dtos[i] = toMeetingDTO(m)
	}

	return &SectionMeetingsDTO{
		SectionID: sectionID,
		Pattern:   string(domain.DerivedPatternLabel(meetings)),
		Meetings:  dtos,
	}, nil
}

func toMeetingDTO(m *domain.Meeting) MeetingDTO {
	return MeetingDTO{
		ID:           m.ID(),
		SectionID:    m.SectionID(),
		Weekday:      m.Weekday().String(),
		Start:        m.Start().String(),
		End:          m.End().String(),
		LocationType: string(m.LocationType()),
		RoomID:       m.RoomID().OrEmpty(),
		MeetingURL:   m.MeetingURL().OrEmpty(),
		PatternLabel: m.PatternLabel(),
	}
}
