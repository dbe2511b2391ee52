// Package app wires classplan's dependencies.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/classplan/internal/scheduling/application/queries"
	"github.com/felixgeelhaar/classplan/internal/scheduling/application/services"
	"github.com/felixgeelhaar/classplan/internal/scheduling/application/subscribers"
	schedulingDomain "github.com/felixgeelhaar/classplan/internal/scheduling/domain"
	"github.com/felixgeelhaar/classplan/internal/scheduling/infrastructure/locking"
	sharedApplication "github.com/felixgeelhaar/classplan/internal/shared/application"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/classplan/internal/shared/infrastructure/database/postgres"
	_ "github.com/felixgeelhaar/classplan/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/classplan/pkg/config"
	"github.com/felixgeelhaar/classplan/pkg/observability"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics

	// Infrastructure
	DB          database.Connection
	RedisClient *redis.Client

	// Repositories
	MeetingRepo schedulingDomain.MeetingRepository
	OutboxRepo  outbox.Repository
	UnitOfWork  sharedApplication.UnitOfWork
	SlotLocker  locking.SlotLocker

	// Scheduling
	Scheduler                    *services.BatchScheduler
	ListSectionMeetingsHandler   *queries.ListSectionMeetingsHandler
	ExportSectionCalendarHandler *queries.ExportSectionCalendarHandler

	// Event relay, set by InitEventRelay
	EventPublisher   eventbus.Publisher
	PublisherBreaker *eventbus.BreakerPublisher
	InProcessBus     *eventbus.InProcessBus
	OutboxProcessor  *outbox.Processor
}

// NewContainer opens the database, applies migrations and wires the
// scheduling services.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
	}

	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.Driver(strings.ToLower(cfg.DatabaseDriver)),
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = conn
	logger.Info("connected to database", "driver", conn.Driver().String())

	if err := migrations.Run(ctx, conn); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := c.connectRedis(ctx); err != nil {
		c.Close()
		return nil, err
	}

	lockConfig := locking.Config{TTL: cfg.SlotLockTTL, Wait: cfg.SlotLockWait}
	if c.RedisClient != nil {
		c.SlotLocker = locking.NewRedisSlotLocker(c.RedisClient, lockConfig, logger)
	} else {
		c.SlotLocker = locking.NewLocalSlotLocker(lockConfig)
	}

	factory := NewRepositoryFactory(conn)
	c.MeetingRepo = factory.MeetingRepository()
	c.OutboxRepo = factory.OutboxRepository()
	c.UnitOfWork = factory.UnitOfWork()

	c.Scheduler = services.NewBatchScheduler(c.MeetingRepo, c.OutboxRepo, c.UnitOfWork, c.SlotLocker, logger).
		WithMetrics(c.Metrics)
	c.ListSectionMeetingsHandler = queries.NewListSectionMeetingsHandler(c.MeetingRepo)
	c.ExportSectionCalendarHandler = queries.NewExportSectionCalendarHandler(c.MeetingRepo)

	return c, nil
}

// connectRedis is lenient in development: an unusable REDIS_URL falls back
// to in-process slot locks, which only protect a single process.
func (c *Container) connectRedis(ctx context.Context) error {
	if c.Config.RedisURL == "" {
		return nil
	}

	opt, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		c.Logger.Warn("invalid Redis URL, slot locks will be in-process", "error", err)
		return nil
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.Logger.Warn("Redis not available, slot locks will be in-process", "error", err)
		return nil
	}

	c.RedisClient = client
	c.Logger.Info("connected to Redis")
	return nil
}

// InitEventRelay builds the publisher and outbox processor used by the
// worker. With RABBITMQ_URL set, events go to the broker behind a circuit
// breaker; otherwise they are delivered to the audit subscriber in process.
func (c *Container) InitEventRelay() error {
	cfg := c.Config

	if cfg.RabbitMQURL != "" {
		rabbit, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, c.Logger)
		if err != nil {
			if !cfg.IsDevelopment() {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			c.Logger.Warn("RabbitMQ not available, relaying events in process", "error", err)
		} else {
			c.PublisherBreaker = eventbus.NewBreakerPublisher(rabbit, eventbus.BreakerConfig{
				MaxRequests:      1,
				Interval:         cfg.PublishBreakerInterval,
				Timeout:          cfg.PublishBreakerTimeout,
				FailureThreshold: uint32(cfg.PublishBreakerThreshold),
			}, c.Logger)
			c.EventPublisher = c.PublisherBreaker
		}
	}

	if c.EventPublisher == nil {
		c.InProcessBus = eventbus.NewInProcessBus(c.Logger)
		c.InProcessBus.RegisterConsumer(subscribers.NewAuditSubscriber(c.Logger, c.Metrics))
		c.EventPublisher = c.InProcessBus
	}

	processorConfig := outbox.DefaultProcessorConfig()
	processorConfig.PollInterval = cfg.OutboxPollInterval
	processorConfig.BatchSize = cfg.OutboxBatchSize
	processorConfig.MaxRetries = cfg.OutboxMaxRetries
	processorConfig.Retention = time.Duration(cfg.OutboxRetentionDays) * 24 * time.Hour
	processorConfig.CleanupInterval = cfg.OutboxCleanupInterval
	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, processorConfig, c.Logger)
	return nil
}

// HealthRegistry reports the database as critical and everything else as
// degradable.
func (c *Container) HealthRegistry() *observability.HealthRegistry {
	registry := observability.NewHealthRegistry(2 * time.Second)
	registry.Register("database", observability.PingChecker("database", observability.HealthStatusUnhealthy, c.DB.Ping))
	if c.RedisClient != nil {
		registry.Register("redis", observability.PingChecker("redis", observability.HealthStatusDegraded, func(ctx context.Context) error {
			return c.RedisClient.Ping(ctx).Err()
		}))
	}
	if c.PublisherBreaker != nil {
		registry.Register("publisher", observability.BreakerChecker(c.PublisherBreaker.State))
	}
	return registry
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.OutboxProcessor != nil {
		c.OutboxProcessor.Stop()
	}

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "error", err)
		} else {
			c.Logger.Info("database connection closed")
		}
	}
}
