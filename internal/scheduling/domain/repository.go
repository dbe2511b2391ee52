package domain

import (
	"context"

	"github.com/google/uuid"
)

// MeetingRepository persists class meetings.
// Implementations use the transaction in ctx when one is present.
type MeetingRepository interface {
	// FindByID returns ErrMeetingNotFound when no meeting has the id.
	FindByID(ctx context.Context, id uuid.UUID) (*Meeting, error)
	// FindBySection returns all meetings of a section ordered by weekday and start.
	FindBySection(ctx context.Context, sectionID string) ([]*Meeting, error)
	FindByRoomAndWeekday(ctx context.Context, roomID string, weekday Weekday) ([]*Meeting, error)
	FindBySectionAndWeekday(ctx context.Context, sectionID string, weekday Weekday) ([]*Meeting, error)
	// Insert stores a new meeting. A storage-level overlap is returned as *ConflictError.
	Insert(ctx context.Context, meeting *Meeting) error
	// Update stores changed fields. A storage-level overlap is returned as *ConflictError.
	Update(ctx context.Context, meeting *Meeting) error
	// Delete returns ErrMeetingNotFound when no meeting has the id.
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteAllForSection removes every meeting of a section and reports how many.
	DeleteAllForSection(ctx context.Context, sectionID string) (int, error)
}
