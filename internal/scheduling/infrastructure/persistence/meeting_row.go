package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/felixgeelhaar/classplan/internal/scheduling/domain"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// Constraint and trigger names from the class_meetings migrations.
const (
	constraintRoomOverlap    = "class_meetings_room_overlap"
	constraintSectionOverlap = "class_meetings_section_overlap"
)

// meetingRow is the column set shared by both drivers. Timestamps are
// scanned by the caller because their storage type differs.
type meetingRow struct {
	id           string
	sectionID    string
	roomID       sql.NullString
	weekday      int
	startSeconds int
	endSeconds   int
	locationType string
	meetingURL   sql.NullString
	patternLabel string
}

func (r meetingRow) toMeeting(createdAt, updatedAt time.Time) (*domain.Meeting, error) {
	id, err := uuid.Parse(r.id)
	if err != nil {
		return nil, fmt.Errorf("parse meeting id %q: %w", r.id, err)
	}

	return domain.RehydrateMeeting(
		id,
		r.sectionID,
		domain.Weekday(r.weekday),
		domain.TimeSlot{
			Start: domain.TimeOfDay(r.startSeconds),
			End:   domain.TimeOfDay(r.endSeconds),
		},
		domain.Location{
			Type:   domain.LocationType(r.locationType),
			RoomID: nullableString(r.roomID),
			URL:    nullableString(r.meetingURL),
		},
		r.patternLabel,
		createdAt,
		updatedAt,
	), nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func optionalArg(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// mapWriteError converts an overlap rejected by the storage layer into the
// same conflict error the application check produces.
func mapWriteError(err error, weekday domain.Weekday) error {
	if err == nil {
		return nil
	}
	name, ok := database.ViolatedConstraint(err, constraintRoomOverlap, constraintSectionOverlap)
	if !ok {
		return err
	}
	if name == constraintRoomOverlap {
		return domain.NewConflictError(weekday, domain.ConflictRoom)
	}
	return domain.NewConflictError(weekday, domain.ConflictSection)
}

func requireAffected(result database.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrMeetingNotFound
	}
	return nil
}
