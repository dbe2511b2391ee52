package outbox_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/database/postgres"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/outbox"
)

func setupSQLiteOutbox(t *testing.T) (database.Connection, *outbox.SQLRepository) {
	t.Helper()
	ctx := context.Background()
	conn, err := sqlite.NewConnection(ctx, database.Config{SQLitePath: filepath.Join(t.TempDir(), "outbox.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn))
	return conn, outbox.NewSQLRepository(conn)
}

func TestSQLRepository_SQLiteLifecycle(t *testing.T) {
	_, repo := setupSQLiteOutbox(t)
	exerciseRepository(t, repo)
}

func TestSQLRepository_PostgresLifecycle(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	conn, err := postgres.NewConnection(ctx, database.Config{URL: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn))
	_, err = conn.Exec(ctx, `DELETE FROM outbox`)
	require.NoError(t, err)

	exerciseRepository(t, outbox.NewSQLRepository(conn))
}

func exerciseRepository(t *testing.T, repo outbox.Repository) {
	ctx := context.Background()

	first := createTestMessage("scheduling.meeting.scheduled")
	second := createTestMessage("scheduling.meeting.removed")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.SaveBatch(ctx, []*outbox.Message{first, second}))
	assert.NotZero(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	pending, err := repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.EventID, pending[0].EventID)
	assert.Equal(t, first.AggregateID, pending[0].AggregateID)
	assert.JSONEq(t, string(first.Payload), string(pending[0].Payload))

	require.NoError(t, repo.MarkPublished(ctx, first.ID))
	require.NoError(t, repo.MarkFailed(ctx, second.ID, "broker down", time.Now().Add(time.Hour)))

	pending, err = repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "failed message waits for its retry time")

	require.NoError(t, repo.MarkFailed(ctx, second.ID, "broker down", time.Now().Add(-time.Second)))
	pending, err = repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].RetryCount)
	require.NotNil(t, pending[0].LastError)
	assert.Equal(t, "broker down", *pending[0].LastError)

	require.NoError(t, repo.MarkDead(ctx, second.ID, "gave up"))
	pending, err = repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	deleted, err := repo.DeleteOld(ctx, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestSQLRepository_SaveJoinsTransaction(t *testing.T) {
	ctx := context.Background()
	conn, repo := setupSQLiteOutbox(t)
	uow := database.NewUnitOfWork(conn)

	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(txCtx, createTestMessage("scheduling.meeting.scheduled")))
	require.NoError(t, uow.Rollback(txCtx))

	pending, err := repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestInMemoryRepository_Lifecycle(t *testing.T) {
	exerciseRepository(t, outbox.NewInMemoryRepository())
}
