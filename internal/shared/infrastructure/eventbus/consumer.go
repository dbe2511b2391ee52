package eventbus

import (
	"context"
	"encoding/json"
	"time"
)

// EventConsumer handles specific event types.
type EventConsumer interface {
	// EventTypes returns the routing keys this consumer handles,
	// e.g. ["scheduling.meeting.scheduled"].
	EventTypes() []string

	// Handle processes the event.
	Handle(ctx context.Context, event *ConsumedEvent) error
}

// ConsumedEvent is an event as seen by a consumer: its routing key and the
// JSON body that was published.
type ConsumedEvent struct {
	RoutingKey string
	ReceivedAt time.Time
	Payload    json.RawMessage
}

// Decode unmarshals the payload into v.
func (e *ConsumedEvent) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}
