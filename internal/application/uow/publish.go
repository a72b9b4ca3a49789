package uow

import (
	"context"

	"github.com/clutch/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// PublishCommitted hands the pending events of each aggregate to the
// publisher and clears them. Call it only after the transaction that
// persisted the aggregates has committed. Publish failures are logged, the
// state change already happened.
func PublishCommitted(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, aggregates ...shared.AggregateRoot) {
	var events []shared.DomainEvent
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		events = append(events, agg.GetDomainEvents()...)
		agg.ClearDomainEvents()
	}
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil && logger != nil {
		logger.Warn("Failed to publish domain events",
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)
	}
}
