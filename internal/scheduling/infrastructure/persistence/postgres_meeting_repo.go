package persistence

import (
	"context"
	"time"

	"github.com/felixgeelhaar/classplan/internal/scheduling/domain"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

const postgresMeetingColumns = `id::text, section_id, room_id, weekday, start_seconds, end_seconds,
	location_type, meeting_url, pattern_label, created_at, updated_at`

// PostgresMeetingRepository implements domain.MeetingRepository using PostgreSQL.
type PostgresMeetingRepository struct {
	conn database.Connection
}

// NewPostgresMeetingRepository creates a new PostgreSQL meeting repository.
func NewPostgresMeetingRepository(conn database.Connection) *PostgresMeetingRepository {
	return &PostgresMeetingRepository{conn: conn}
}

func (r *PostgresMeetingRepository) executor(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

// FindByID retrieves a meeting by its ID.
func (r *PostgresMeetingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Meeting, error) {
	row := r.executor(ctx).QueryRow(ctx,
		`SELECT `+postgresMeetingColumns+` FROM class_meetings WHERE id = $1`, id.String())

	meeting, err := scanPostgresMeeting(row)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrMeetingNotFound
		}
		return nil, err
	}
	return meeting, nil
}

// FindBySection retrieves all meetings of a section in weekday and start order.
func (r *PostgresMeetingRepository) FindBySection(ctx context.Context, sectionID string) ([]*domain.Meeting, error) {
	return r.query(ctx, `SELECT `+postgresMeetingColumns+` FROM class_meetings
		WHERE section_id = $1
		ORDER BY weekday, start_seconds, id`, sectionID)
}

// FindByRoomAndWeekday retrieves the meetings occupying a room on a weekday.
func (r *PostgresMeetingRepository) FindByRoomAndWeekday(ctx context.Context, roomID string, weekday domain.Weekday) ([]*domain.Meeting, error) {
	return r.query(ctx, `SELECT `+postgresMeetingColumns+` FROM class_meetings
		WHERE room_id = $1 AND weekday = $2
		ORDER BY start_seconds, id`, roomID, int16(weekday))
}

// FindBySectionAndWeekday retrieves the meetings of a section on a weekday.
func (r *PostgresMeetingRepository) FindBySectionAndWeekday(ctx context.Context, sectionID string, weekday domain.Weekday) ([]*domain.Meeting, error) {
	return r.query(ctx, `SELECT `+postgresMeetingColumns+` FROM class_meetings
		WHERE section_id = $1 AND weekday = $2
		ORDER BY start_seconds, id`, sectionID, int16(weekday))
}

func (r *PostgresMeetingRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Meeting, error) {
	rows, err := r.executor(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return database.CollectRows(rows, scanPostgresMeeting)
}

// Insert stores a new meeting.
func (r *PostgresMeetingRepository) Insert(ctx context.Context, meeting *domain.Meeting) error {
	loc := meeting.Location()
	_, err := r.executor(ctx).Exec(ctx, `
		INSERT INTO class_meetings (
			id, section_id, room_id, weekday, start_seconds, end_seconds,
			location_type, meeting_url, pattern_label, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		meeting.ID().String(),
		meeting.SectionID(),
		optionalArg(loc.RoomID),
		int16(meeting.Weekday()),
		int32(meeting.Start().Seconds()),
		int32(meeting.End().Seconds()),
		string(loc.Type),
		optionalArg(loc.URL),
		meeting.PatternLabel(),
		meeting.CreatedAt().UTC(),
		meeting.UpdatedAt().UTC(),
	)
	return mapWriteError(err, meeting.Weekday())
}

// Update stores the current placement of an existing meeting.
func (r *PostgresMeetingRepository) Update(ctx context.Context, meeting *domain.Meeting) error {
	loc := meeting.Location()
	result, err := r.executor(ctx).Exec(ctx, `
		UPDATE class_meetings SET
			room_id = $1, weekday = $2, start_seconds = $3, end_seconds = $4,
			location_type = $5, meeting_url = $6, pattern_label = $7, updated_at = $8
		WHERE id = $9`,
		optionalArg(loc.RoomID),
		int16(meeting.Weekday()),
		int32(meeting.Start().Seconds()),
		int32(meeting.End().Seconds()),
		string(loc.Type),
		optionalArg(loc.URL),
		meeting.PatternLabel(),
		meeting.UpdatedAt().UTC(),
		meeting.ID().String(),
	)
	if err != nil {
		return mapWriteError(err, meeting.Weekday())
	}
	return requireAffected(result)
}

// Delete removes a meeting by its ID.
func (r *PostgresMeetingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.executor(ctx).Exec(ctx, `DELETE FROM class_meetings WHERE id = $1`, id.String())
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// DeleteAllForSection removes every meeting of a section.
func (r *PostgresMeetingRepository) DeleteAllForSection(ctx context.Context, sectionID string) (int, error) {
	result, err := r.executor(ctx).Exec(ctx, `DELETE FROM class_meetings WHERE section_id = $1`, sectionID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func scanPostgresMeeting(row database.Row) (*domain.Meeting, error) {
	var (
		m                    meetingRow
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(
		&m.id, &m.sectionID, &m.roomID, &m.weekday, &m.startSeconds, &m.endSeconds,
		&m.locationType, &m.meetingURL, &m.patternLabel, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	return m.toMeeting(createdAt, updatedAt)
}

// NewMeetingRepository picks the repository matching the connection's driver.
func NewMeetingRepository(conn database.Connection) domain.MeetingRepository {
	if conn.Driver() == database.DriverPostgres {
		return NewPostgresMeetingRepository(conn)
	}
	return NewSQLiteMeetingRepository(conn)
}
