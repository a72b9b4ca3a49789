// Package notification forwards settlement and reconciliation events to
// Google Cloud Pub/Sub for downstream consumers (partner e-mails, finance
// dashboards).
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/clutch/ledger/internal/domain/banking"
	"github.com/clutch/ledger/internal/domain/payout"
	"github.com/clutch/ledger/internal/domain/settlement"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/infrastructure/config"
	"github.com/clutch/ledger/internal/infrastructure/event"
	"go.uber.org/zap"
)

const publishTimeout = 10 * time.Second

// ForwardedEventTypes are the events published to the topic
var ForwardedEventTypes = []string{
	payout.EventTypePayoutCreated,
	payout.EventTypePayoutStatusChanged,
	banking.EventTypeReconciliationCompleted,
	banking.EventTypeReconciliationDisputed,
	settlement.EventTypeCommissionRefunded,
}

// PubSubForwarder is an event handler that publishes envelopes of the
// forwarded event types to one Pub/Sub topic
type PubSubForwarder struct {
	topic      *pubsub.Topic
	serializer *event.EventSerializer
	logger     *zap.Logger
}

// NewPubSubForwarder creates a forwarder publishing to topic
func NewPubSubForwarder(topic *pubsub.Topic, serializer *event.EventSerializer, logger *zap.Logger) *PubSubForwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if serializer == nil {
		serializer = event.NewEventSerializer()
	}
	return &PubSubForwarder{topic: topic, serializer: serializer, logger: logger}
}

// Connect creates the client for cfg.ProjectID and returns a forwarder for
// cfg.Topic, creating the topic when it does not exist. The returned close
// function flushes pending messages and releases the client.
func Connect(ctx context.Context, cfg config.NotificationConfig, serializer *event.EventSerializer, logger *zap.Logger) (*PubSubForwarder, func() error, error) {
	if cfg.ProjectID == "" {
		return nil, nil, errors.New("notification project id is required")
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	topic, err := EnsureTopic(ctx, client, cfg.Topic)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	closer := func() error {
		topic.Stop()
		return client.Close()
	}
	return NewPubSubForwarder(topic, serializer, logger), closer, nil
}

// EnsureTopic returns the named topic, creating it if needed
func EnsureTopic(ctx context.Context, client *pubsub.Client, name string) (*pubsub.Topic, error) {
	if name == "" {
		return nil, errors.New("topic is required")
	}
	topic := client.Topic(name)
	ok, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %q: %w", name, err)
	}
	if ok {
		return topic, nil
	}
	topic, err = client.CreateTopic(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create topic %q: %w", name, err)
	}
	return topic, nil
}

// Handle implements shared.EventHandler. The message is published
// synchronously so that failures surface in the event bus log.
func (f *PubSubForwarder) Handle(ctx context.Context, evt shared.DomainEvent) error {
	env, err := f.serializer.Envelope(evt)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	id, err := f.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: env.Attributes(),
	}).Get(ctx)
	if err != nil {
		return fmt.Errorf("publish %s: %w", evt.EventType(), err)
	}

	f.logger.Debug("Event forwarded",
		zap.String("event_type", evt.EventType()),
		zap.String("event_id", evt.EventID().String()),
		zap.String("message_id", id),
	)
	return nil
}

// EventTypes implements shared.EventHandler
func (f *PubSubForwarder) EventTypes() []string {
	return ForwardedEventTypes
}

var _ shared.EventHandler = (*PubSubForwarder)(nil)
