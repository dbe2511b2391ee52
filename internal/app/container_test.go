package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/classplan/internal/scheduling/application/queries"
	"github.com/felixgeelhaar/classplan/internal/scheduling/application/services"
	"github.com/felixgeelhaar/classplan/internal/scheduling/domain"
	"github.com/felixgeelhaar/classplan/internal/scheduling/infrastructure/locking"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/classplan/pkg/config"
	"github.com/felixgeelhaar/classplan/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:                  "development",
		LogLevel:                "error",
		LogFormat:               "text",
		Timezone:                "UTC",
		DatabaseDriver:          "sqlite",
		SQLitePath:              filepath.Join(t.TempDir(), "classplan.db"),
		SlotLockTTL:             time.Second,
		SlotLockWait:            time.Second,
		OutboxPollInterval:      10 * time.Millisecond,
		OutboxBatchSize:         50,
		OutboxMaxRetries:        3,
		OutboxRetentionDays:     14,
		OutboxCleanupInterval:   time.Hour,
		PublishBreakerThreshold: 5,
		PublishBreakerTimeout:   time.Second,
		PublishBreakerInterval:  time.Minute,
	}
}

func newTestContainer(t *testing.T, cfg *config.Config) *Container {
	t.Helper()
	c, err := NewContainer(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestNewContainer_LocalMode(t *testing.T) {
	c := newTestContainer(t, testConfig(t))

	assert.Equal(t, database.DriverSQLite, c.DB.Driver())
	assert.Nil(t, c.RedisClient)
	assert.IsType(t, &locking.LocalSlotLocker{}, c.SlotLocker)
	assert.NotNil(t, c.Scheduler)
	assert.NotNil(t, c.ListSectionMeetingsHandler)
	assert.NotNil(t, c.ExportSectionCalendarHandler)
}

func TestNewContainer_RejectsUnreachableRedisOutsideDevelopment(t *testing.T) {
	cfg := testConfig(t)
	cfg.AppEnv = "production"
	cfg.RedisURL = "not a url"

	_, err := NewContainer(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, "Redis")
}

func TestNewContainer_DevelopmentFallsBackWithoutRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "not a url"

	c := newTestContainer(t, cfg)
	assert.Nil(t, c.RedisClient)
	assert.IsType(t, &locking.LocalSlotLocker{}, c.SlotLocker)
}

func TestContainer_ScheduleAndRelayInProcess(t *testing.T) {
	c := newTestContainer(t, testConfig(t))
	require.NoError(t, c.InitEventRelay())
	require.NotNil(t, c.InProcessBus)
	assert.Nil(t, c.PublisherBreaker)

	ctx := context.Background()
	room := "R1"
	result, err := c.Scheduler.ScheduleBatch(ctx, services.ScheduleBatchRequest{
		SectionID:    "CS-101",
		RoomID:       &room,
		LocationType: domain.LocationInPerson,
		Start:        domain.MustTimeOfDay("10:00"),
		End:          domain.MustTimeOfDay("11:15"),
		Pattern:      domain.PatternTuesdayThursday,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.CommittedCount)

	listed, err := c.ListSectionMeetingsHandler.Handle(ctx, queries.ListSectionMeetingsQuery{SectionID: "CS-101"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.PatternTuesdayThursday), listed.Pattern)

	require.NoError(t, c.OutboxProcessor.ProcessOnce(ctx))
	assert.Equal(t, int64(2), c.Metrics.GetCounter(observability.MetricEventsConsumed,
		observability.T("routing_key", domain.RoutingKeyMeetingScheduled)))
	assert.Equal(t, int64(2), c.Metrics.GetCounter(observability.MetricMeetingsCommitted))

	pending, err := c.OutboxRepo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestContainer_HealthRegistry(t *testing.T) {
	c := newTestContainer(t, testConfig(t))

	health := c.HealthRegistry().Check(context.Background())

	assert.Equal(t, observability.HealthStatusHealthy, health.Status)
	assert.Contains(t, health.Checks, "database")
	assert.NotContains(t, health.Checks, "redis")
}

func TestRepositoryFactory(t *testing.T) {
	c := newTestContainer(t, testConfig(t))
	f := NewRepositoryFactory(c.DB)

	assert.Equal(t, database.DriverSQLite, f.Driver())
	assert.NotNil(t, f.MeetingRepository())
	assert.NotNil(t, f.OutboxRepository())
	assert.NotNil(t, f.UnitOfWork())
}
