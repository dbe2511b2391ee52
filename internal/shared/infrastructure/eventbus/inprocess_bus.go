package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// InProcessBus is a Publisher that delivers events synchronously to consumers
// registered in the same process. It replaces the broker in local mode.
type InProcessBus struct {
	registry *ConsumerRegistry
	logger   *slog.Logger
}

// NewInProcessBus creates an in-process bus with an empty registry.
func NewInProcessBus(logger *slog.Logger) *InProcessBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessBus{
		registry: NewConsumerRegistry(logger),
		logger:   logger,
	}
}

// RegisterConsumer registers an event consumer.
func (b *InProcessBus) RegisterConsumer(consumer EventConsumer) {
	b.registry.Register(consumer)
}

// Registry returns the underlying consumer registry.
func (b *InProcessBus) Registry() *ConsumerRegistry {
	return b.registry
}

// Publish dispatches the payload to all consumers of routingKey. Consumer
// failures are returned so the outbox retries the message.
func (b *InProcessBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	if !json.Valid(payload) {
		b.logger.Error("dropping event with invalid payload", "routing_key", routingKey)
		return nil
	}

	event := &ConsumedEvent{
		RoutingKey: routingKey,
		ReceivedAt: time.Now().UTC(),
		Payload:    json.RawMessage(payload),
	}

	start := time.Now()
	if err := b.registry.Dispatch(ctx, event); err != nil {
		return err
	}

	b.logger.Debug("event dispatched",
		"routing_key", routingKey,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Close is a no-op.
func (b *InProcessBus) Close() error {
	return nil
}
