// Package subscribers reacts to scheduling events relayed from the outbox.
package subscribers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/classplan/internal/scheduling/domain"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/classplan/pkg/observability"
)

// auditPayload is the subset of fields shared by every scheduling event.
type auditPayload struct {
	SectionID    string   `json:"section_id"`
	MeetingID    string   `json:"meeting_id,omitempty"`
	Pattern      string   `json:"pattern,omitempty"`
	DeletedCount *int     `json:"deleted_count,omitempty"`
	CreatedCount *int     `json:"created_count,omitempty"`
	FailedDays   []string `json:"failed_days,omitempty"`
}

// AuditSubscriber writes an audit log line for every schedule change. The
// worker registers it on the in-process bus when no broker is configured.
type AuditSubscriber struct {
	logger  *slog.Logger
	metrics observability.Metrics
}

// NewAuditSubscriber creates a new audit subscriber.
func NewAuditSubscriber(logger *slog.Logger, metrics observability.Metrics) *AuditSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &AuditSubscriber{
		logger:  logger.With("component", "schedule-audit"),
		metrics: metrics,
	}
}

// EventTypes returns the event types this subscriber handles.
func (s *AuditSubscriber) EventTypes() []string {
	return []string{
		domain.RoutingKeyMeetingScheduled,
		domain.RoutingKeyMeetingRescheduled,
		domain.RoutingKeyMeetingRemoved,
		domain.RoutingKeySectionPatternReplaced,
	}
}

// Handle records one event. A payload that cannot be decoded is returned as
// an error so the outbox keeps the message for inspection.
func (s *AuditSubscriber) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var payload auditPayload
	if err := event.Decode(&payload); err != nil {
		return fmt.Errorf("decode %s: %w", event.RoutingKey, err)
	}

	attrs := []any{
		"routing_key", event.RoutingKey,
		"section_id", payload.SectionID,
	}
	if payload.MeetingID != "" {
		attrs = append(attrs, "meeting_id", payload.MeetingID)
	}

	switch event.RoutingKey {
	case domain.RoutingKeySectionPatternReplaced:
		attrs = append(attrs,
			"pattern", payload.Pattern,
			"deleted", deref(payload.DeletedCount),
			"created", deref(payload.CreatedCount),
		)
		if len(payload.FailedDays) > 0 {
			attrs = append(attrs, "failed_days", payload.FailedDays)
			s.logger.WarnContext(ctx, "section pattern replaced with failures", attrs...)
			break
		}
		s.logger.InfoContext(ctx, "section pattern replaced", attrs...)
	default:
		s.logger.InfoContext(ctx, "schedule changed", attrs...)
	}

	s.metrics.Counter(observability.MetricEventsConsumed, 1, observability.T("routing_key", event.RoutingKey))
	return nil
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
