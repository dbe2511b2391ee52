package eventbus

import (
	"context"
	"log/slog"
)

// Publisher defines the interface for publishing events to a message broker.
type Publisher interface {
	// Publish sends a message to the event bus.
	Publish(ctx context.Context, routingKey string, payload []byte) error

	// Close closes the publisher connection.
	Close() error
}

// LoggingPublisher writes every message to the log instead of a broker.
// It is used when no broker is configured.
type LoggingPublisher struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLoggingPublisher creates a publisher that logs at info level.
func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingPublisher{logger: logger, level: slog.LevelInfo}
}

// NewNoopPublisher creates a publisher that only logs at debug level.
func NewNoopPublisher(logger *slog.Logger) *LoggingPublisher {
	p := NewLoggingPublisher(logger)
	p.level = slog.LevelDebug
	return p
}

// Publish logs the message.
func (p *LoggingPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.logger.Log(ctx, p.level, "event published",
		"routing_key", routingKey,
		"size", len(payload),
		"payload", string(payload),
	)
	return nil
}

// Close is a no-op.
func (p *LoggingPublisher) Close() error {
	return nil
}
