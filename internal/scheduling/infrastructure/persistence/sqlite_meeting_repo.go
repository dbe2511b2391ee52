package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/classplan/internal/scheduling/domain"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// sqliteTimeLayout is fixed-width so that stored timestamps sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteMeetingColumns = `id, section_id, room_id, weekday, start_seconds, end_seconds,
	location_type, meeting_url, pattern_label, created_at, updated_at`

// SQLiteMeetingRepository implements domain.MeetingRepository using SQLite.
type SQLiteMeetingRepository struct {
	conn database.Connection
}

// NewSQLiteMeetingRepository creates a new SQLite meeting repository.
func NewSQLiteMeetingRepository(conn database.Connection) *SQLiteMeetingRepository {
	return &SQLiteMeetingRepository{conn: conn}
}

func (r *SQLiteMeetingRepository) executor(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

// FindByID retrieves a meeting by its ID.
func (r *SQLiteMeetingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Meeting, error) {
	row := r.executor(ctx).QueryRow(ctx,
		`SELECT `+sqliteMeetingColumns+` FROM class_meetings WHERE id = ?`, id.String())

	meeting, err := scanSQLiteMeeting(row)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrMeetingNotFound
		}
		return nil, err
	}
	return meeting, nil
}

// FindBySection retrieves all meetings of a section in weekday and start order.
func (r *SQLiteMeetingRepository) FindBySection(ctx context.Context, sectionID string) ([]*domain.Meeting, error) {
	return r.query(ctx, `SELECT `+sqliteMeetingColumns+` FROM class_meetings
		WHERE section_id = ?
		ORDER BY weekday, start_seconds, id`, sectionID)
}

// FindByRoomAndWeekday retrieves the meetings occupying a room on a weekday.
func (r *SQLiteMeetingRepository) FindByRoomAndWeekday(ctx context.Context, roomID string, weekday domain.Weekday) ([]*domain.Meeting, error) {
	return r.query(ctx, `SELECT `+sqliteMeetingColumns+` FROM class_meetings
		WHERE room_id = ? AND weekday = ?
		ORDER BY start_seconds, id`, roomID, int(weekday))
}

// FindBySectionAndWeekday retrieves the meetings of a section on a weekday.
func (r *SQLiteMeetingRepository) FindBySectionAndWeekday(ctx context.Context, sectionID string, weekday domain.Weekday) ([]*domain.Meeting, error) {
	return r.query(ctx, `SELECT `+sqliteMeetingColumns+` FROM class_meetings
		WHERE section_id = ? AND weekday = ?
		ORDER BY start_seconds, id`, sectionID, int(weekday))
}

func (r *SQLiteMeetingRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Meeting, error) {
	rows, err := r.executor(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return database.CollectRows(rows, scanSQLiteMeeting)
}

// Insert stores a new meeting.
func (r *SQLiteMeetingRepository) Insert(ctx context.Context, meeting *domain.Meeting) error {
	loc := meeting.Location()
	_, err := r.executor(ctx).Exec(ctx, `
		INSERT INTO class_meetings (
			id, section_id, room_id, weekday, start_seconds, end_seconds,
			location_type, meeting_url, pattern_label, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meeting.ID().String(),
		meeting.SectionID(),
		optionalArg(loc.RoomID),
		int(meeting.Weekday()),
		meeting.Start().Seconds(),
		meeting.End().Seconds(),
		string(loc.Type),
		optionalArg(loc.URL),
		meeting.PatternLabel(),
		formatSQLiteTime(meeting.CreatedAt()),
		formatSQLiteTime(meeting.UpdatedAt()),
	)
	return mapWriteError(err, meeting.Weekday())
}

// Update stores the current placement of an existing meeting.
func (r *SQLiteMeetingRepository) Update(ctx context.Context, meeting *domain.Meeting) error {
	loc := meeting.Location()
	result, err := r.executor(ctx).Exec(ctx, `
		UPDATE class_meetings SET
			room_id = ?, weekday = ?, start_seconds = ?, end_seconds = ?,
			location_type = ?, meeting_url = ?, pattern_label = ?, updated_at = ?
		WHERE id = ?`,
		optionalArg(loc.RoomID),
		int(meeting.Weekday()),
		meeting.Start().Seconds(),
		meeting.End().Seconds(),
		string(loc.Type),
		optionalArg(loc.URL),
		meeting.PatternLabel(),
		formatSQLiteTime(meeting.UpdatedAt()),
		meeting.ID().String(),
	)
	if err != nil {
		return mapWriteError(err, meeting.Weekday())
	}
	return requireAffected(result)
}

// Delete removes a meeting by its ID.
func (r *SQLiteMeetingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.executor(ctx).Exec(ctx, `DELETE FROM class_meetings WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// DeleteAllForSection removes every meeting of a section.
func (r *SQLiteMeetingRepository) DeleteAllForSection(ctx context.Context, sectionID string) (int, error) {
	result, err := r.executor(ctx).Exec(ctx, `DELETE FROM class_meetings WHERE section_id = ?`, sectionID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func scanSQLiteMeeting(row database.Row) (*domain.Meeting, error) {
	var (
		m                    meetingRow
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&m.id, &m.sectionID, &m.roomID, &m.weekday, &m.startSeconds, &m.endSeconds,
		&m.locationType, &m.meetingURL, &m.patternLabel, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	created, err := time.Parse(sqliteTimeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	updated, err := time.Parse(sqliteTimeLayout, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return m.toMeeting(created, updated)
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}
