package application

import (
	"github.com/felixgeelhaar/classplan/internal/shared/domain"
	"github.com/google/uuid"
)

type metadataSetter interface {
	SetMetadata(metadata domain.EventMetadata)
}

// NewEventMetadata creates command-scoped metadata for domain events.
// A correlation id that is not a uuid is replaced by a fresh one.
func NewEventMetadata(correlationID, actor string) domain.EventMetadata {
	corr, err := uuid.Parse(correlationID)
	if err != nil {
		corr = uuid.New()
	}
	return domain.EventMetadata{
		CorrelationID: corr,
		CausationID:   uuid.New(),
		Actor:         actor,
	}
}

// ApplyEventMetadata sets metadata on all events that support it.
func ApplyEventMetadata(events []domain.DomainEvent, metadata domain.EventMetadata) {
	for _, event := range events {
		if setter, ok := event.(metadataSetter); ok {
			setter.SetMetadata(metadata)
		}
	}
}
