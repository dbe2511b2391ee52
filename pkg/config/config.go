// Package config loads classplan settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv    string
	LogLevel  string
	LogFormat string
	Actor     string
	Timezone  string

	// Database
	DatabaseURL    string
	DatabaseDriver string
	SQLitePath     string

	// Slot locks. An empty RedisURL keeps locks in process.
	RedisURL     string
	SlotLockTTL  time.Duration
	SlotLockWait time.Duration

	// Event publishing. An empty RabbitMQURL relays events in process.
	RabbitMQURL string

	// Outbox
	OutboxPollInterval    time.Duration
	OutboxBatchSize       int
	OutboxMaxRetries      int
	OutboxRetentionDays   int
	OutboxCleanupInterval time.Duration
	OutboxStatsInterval   time.Duration

	// Publisher circuit breaker
	PublishBreakerThreshold int
	PublishBreakerTimeout   time.Duration
	PublishBreakerInterval  time.Duration

	// Worker
	WorkerHealthAddr string
}

// Load loads configuration from environment variables, reading a .env file
// from the working directory first when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		Actor:     getEnv("CLASSPLAN_ACTOR", currentUser()),
		Timezone:  getEnv("TIMEZONE", "UTC"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DatabaseDriver: getEnv("DATABASE_DRIVER", "auto"),
		SQLitePath:     getEnv("SQLITE_PATH", ""),

		RedisURL:     getEnv("REDIS_URL", ""),
		SlotLockTTL:  getDurationEnv("SLOT_LOCK_TTL", 10*time.Second),
		SlotLockWait: getDurationEnv("SLOT_LOCK_WAIT", 5*time.Second),

		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		OutboxPollInterval:    getDurationEnv("OUTBOX_POLL_INTERVAL", 100*time.Millisecond),
		OutboxBatchSize:       getIntEnv("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxRetries:      getIntEnv("OUTBOX_MAX_RETRIES", 5),
		OutboxRetentionDays:   getIntEnv("OUTBOX_RETENTION_DAYS", 14),
		OutboxCleanupInterval: getDurationEnv("OUTBOX_CLEANUP_INTERVAL", 24*time.Hour),
		OutboxStatsInterval:   getDurationEnv("OUTBOX_STATS_INTERVAL", 30*time.Second),

		PublishBreakerThreshold: getIntEnv("PUBLISH_BREAKER_THRESHOLD", 5),
		PublishBreakerTimeout:   getDurationEnv("PUBLISH_BREAKER_TIMEOUT", 30*time.Second),
		PublishBreakerInterval:  getDurationEnv("PUBLISH_BREAKER_INTERVAL", time.Minute),

		WorkerHealthAddr: getEnv("WORKER_HEALTH_ADDR", "0.0.0.0:8081"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that would only fail later at wiring time.
func (c *Config) Validate() error {
	switch strings.ToLower(c.DatabaseDriver) {
	case "", "auto", "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: DATABASE_DRIVER %q", ErrInvalidConfig, c.DatabaseDriver)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: LOG_FORMAT %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: TIMEZONE %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	if c.OutboxBatchSize <= 0 {
		return fmt.Errorf("%w: OUTBOX_BATCH_SIZE must be positive", ErrInvalidConfig)
	}
	if c.PublishBreakerThreshold <= 0 {
		return fmt.Errorf("%w: PUBLISH_BREAKER_THRESHOLD must be positive", ErrInvalidConfig)
	}

	// Each of these drives a time.Ticker or a lock expiry.
	durations := []struct {
		key   string
		value time.Duration
	}{
		{"SLOT_LOCK_TTL", c.SlotLockTTL},
		{"OUTBOX_POLL_INTERVAL", c.OutboxPollInterval},
		{"OUTBOX_CLEANUP_INTERVAL", c.OutboxCleanupInterval},
		{"OUTBOX_STATS_INTERVAL", c.OutboxStatsInterval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, d.key)
		}
	}
	return nil
}

// Location returns the configured timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "classplan"
}
