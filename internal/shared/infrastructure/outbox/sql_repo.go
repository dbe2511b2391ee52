package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// sqliteTimeLayout is fixed-width so that stored timestamps sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const messageColumns = `id, event_id, aggregate_type, aggregate_id, event_type, routing_key,
	payload, metadata, created_at, published_at, next_retry_at, retry_count,
	last_error, dead_lettered_at, dead_letter_reason`

// SQLRepository implements Repository on a database.Connection.
// Queries are written with ? placeholders and rebound for PostgreSQL.
type SQLRepository struct {
	conn database.Connection
}

// NewSQLRepository creates an outbox repository for the connection's driver.
func NewSQLRepository(conn database.Connection) *SQLRepository {
	return &SQLRepository{conn: conn}
}

func (r *SQLRepository) postgres() bool {
	return r.conn.Driver() == database.DriverPostgres
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if !r.postgres() {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *SQLRepository) timeArg(t time.Time) any {
	if r.postgres() {
		return t.UTC()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

func (r *SQLRepository) optionalTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return r.timeArg(*t)
}

// Save stores a new outbox message.
func (r *SQLRepository) Save(ctx context.Context, msg *Message) error {
	query := r.rebind(`
		INSERT INTO outbox (
			event_id, aggregate_type, aggregate_id, event_type, routing_key,
			payload, metadata, created_at, next_retry_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	var metadata sql.NullString
	if len(msg.Metadata) > 0 {
		metadata = sql.NullString{String: string(msg.Metadata), Valid: true}
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	exec := database.ExecutorFromContext(ctx, r.conn)
	err := exec.QueryRow(ctx, query,
		msg.EventID.String(),
		msg.AggregateType,
		msg.AggregateID,
		msg.EventType,
		msg.RoutingKey,
		string(msg.Payload),
		metadata,
		r.timeArg(createdAt),
		r.optionalTimeArg(msg.NextRetryAt),
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("insert outbox message %s: %w", msg.EventID, err)
	}
	return nil
}

// SaveBatch stores multiple messages atomically, joining the transaction in ctx if any.
func (r *SQLRepository) SaveBatch(ctx context.Context, msgs []*Message) error {
	if len(msgs) == 0 {
		return nil
	}

	uow := database.NewUnitOfWork(r.conn)
	txCtx, err := uow.Begin(ctx)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		if err := r.Save(txCtx, msg); err != nil {
			_ = uow.Rollback(txCtx)
			return err
		}
	}
	return uow.Commit(txCtx)
}

// GetUnpublished returns pending messages whose retry time has come, oldest first.
func (r *SQLRepository) GetUnpublished(ctx context.Context, limit int) ([]*Message, error) {
	query := r.rebind(`SELECT ` + messageColumns + `
		FROM outbox
		WHERE published_at IS NULL
		  AND dead_lettered_at IS NULL
		  AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY created_at, id
		LIMIT ?`)

	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, query, r.timeArg(time.Now()), limit)
	if err != nil {
		return nil, err
	}
	return database.CollectRows(rows, scanMessage)
}

// MarkPublished marks a message as successfully published.
func (r *SQLRepository) MarkPublished(ctx context.Context, id int64) error {
	query := r.rebind(`UPDATE outbox SET published_at = ?, dead_lettered_at = NULL WHERE id = ?`)
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query, r.timeArg(time.Now()), id)
	return err
}

// MarkFailed records a publish failure and schedules the next attempt.
func (r *SQLRepository) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	query := r.rebind(`
		UPDATE outbox
		SET retry_count = retry_count + 1,
			last_error = ?,
			next_retry_at = ?
		WHERE id = ?`)
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query, errMsg, r.timeArg(nextRetryAt), id)
	return err
}

// MarkDead marks a message as dead-lettered.
func (r *SQLRepository) MarkDead(ctx context.Context, id int64, reason string) error {
	query := r.rebind(`
		UPDATE outbox
		SET dead_lettered_at = ?,
			dead_letter_reason = ?
		WHERE id = ?`)
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query, r.timeArg(time.Now()), reason, id)
	return err
}

// DeleteOld removes messages published before now minus retention.
func (r *SQLRepository) DeleteOld(ctx context.Context, retention time.Duration) (int64, error) {
	query := r.rebind(`DELETE FROM outbox WHERE published_at IS NOT NULL AND published_at < ?`)
	result, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query, r.timeArg(time.Now().Add(-retention)))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanMessage(row database.Row) (*Message, error) {
	var (
		msg         Message
		eventID     string
		payload     string
		metadata    sql.NullString
		createdAt   timeColumn
		publishedAt timeColumn
		nextRetryAt timeColumn
		deadAt      timeColumn
		lastError   sql.NullString
		deadReason  sql.NullString
	)
	err := row.Scan(
		&msg.ID,
		&eventID,
		&msg.AggregateType,
		&msg.AggregateID,
		&msg.EventType,
		&msg.RoutingKey,
		&payload,
		&metadata,
		&createdAt,
		&publishedAt,
		&nextRetryAt,
		&msg.RetryCount,
		&lastError,
		&deadAt,
		&deadReason,
	)
	if err != nil {
		return nil, err
	}

	if msg.EventID, err = uuid.Parse(eventID); err != nil {
		return nil, fmt.Errorf("outbox message %d has invalid event id: %w", msg.ID, err)
	}
	msg.Payload = json.RawMessage(payload)
	if metadata.Valid {
		msg.Metadata = json.RawMessage(metadata.String)
	}
	if createdAt.Valid {
		msg.CreatedAt = createdAt.Time
	}
	msg.PublishedAt = publishedAt.Ptr()
	msg.NextRetryAt = nextRetryAt.Ptr()
	msg.DeadLetteredAt = deadAt.Ptr()
	if lastError.Valid {
		msg.LastError = &lastError.String
	}
	if deadReason.Valid {
		msg.DeadLetterReason = &deadReason.String
	}
	return &msg, nil
}

// timeColumn scans TIMESTAMPTZ values from pgx and TEXT values from SQLite.
type timeColumn struct {
	Time  time.Time
	Valid bool
}

func (c *timeColumn) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		c.Time, c.Valid = time.Time{}, false
		return nil
	case time.Time:
		c.Time, c.Valid = v.UTC(), true
		return nil
	case string:
		return c.parse(v)
	case []byte:
		return c.parse(string(v))
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

func (c *timeColumn) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	c.Time, c.Valid = t.UTC(), true
	return nil
}

// Ptr returns nil for NULL columns.
func (c timeColumn) Ptr() *time.Time {
	if !c.Valid {
		return nil
	}
	t := c.Time
	return &t
}
