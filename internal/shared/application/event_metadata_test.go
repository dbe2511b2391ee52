package application

import (
	"testing"

	"github.com/felixgeelhaar/classplan/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventMetadata(t *testing.T) {
	t.Run("keeps a valid correlation id", func(t *testing.T) {
		corr := uuid.New()

		metadata := NewEventMetadata(corr.String(), "registrar")

		assert.Equal(t, corr, metadata.CorrelationID)
		assert.Equal(t, "registrar", metadata.Actor)
		assert.NotEqual(t, uuid.Nil, metadata.CausationID)
	})

	t.Run("generates a correlation id when missing", func(t *testing.T) {
		m1 := NewEventMetadata("", "")
		m2 := NewEventMetadata("not-a-uuid", "")

		assert.NotEqual(t, uuid.Nil, m1.CorrelationID)
		assert.NotEqual(t, m1.CorrelationID, m2.CorrelationID)
	})
}

type testEvent struct {
	domain.BaseEvent
}

func TestApplyEventMetadata(t *testing.T) {
	t.Run("applies metadata to events with setter", func(t *testing.T) {
		e1 := &testEvent{BaseEvent: domain.NewBaseEvent("a", "test", "test.one")}
		e2 := &testEvent{BaseEvent: domain.NewBaseEvent("b", "test", "test.two")}
		metadata := NewEventMetadata("", "cli")

		ApplyEventMetadata([]domain.DomainEvent{e1, e2}, metadata)

		assert.Equal(t, metadata, e1.Metadata())
		assert.Equal(t, metadata, e2.Metadata())
	})

	t.Run("skips events passed by value", func(t *testing.T) {
		e := testEvent{BaseEvent: domain.NewBaseEvent("a", "test", "test.one")}

		ApplyEventMetadata([]domain.DomainEvent{e}, NewEventMetadata("", "cli"))

		assert.Empty(t, e.Metadata().Actor)
	})

	t.Run("handles nil event list", func(t *testing.T) {
		require.NotPanics(t, func() {
			ApplyEventMetadata(nil, NewEventMetadata("", ""))
		})
	})
}
