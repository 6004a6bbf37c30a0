package events

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubPublisher publishes engine events to a Pub/Sub topic for downstream
// consumers (trip history, analytics).
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topicName string
	logger    zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub publisher.
type PubSubConfig struct {
	ProjectID string
	TopicName string
	Logger    zerolog.Logger
}

// NewPubSubPublisher creates a Pub/Sub event publisher.
func NewPubSubPublisher(ctx context.Context, cfg PubSubConfig) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubPublisher{
		client:    client,
		publisher: client.Publisher(cfg.TopicName),
		topicName: cfg.TopicName,
		logger:    cfg.Logger,
	}, nil
}

// Publish implements Publisher. The publish result is awaited so ordering
// problems surface in logs, but failures are reported, not retried; region
// transitions already tolerate duplicate delivery downstream.
func (p *PubSubPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": string(event.Type),
		},
	})

	id, err := result.Get(ctx)
	if err != nil {
		p.logger.Error().Err(err).
			Str("topic", p.topicName).
			Str("event_type", string(event.Type)).
			Msg("failed to publish engine event")
		return fmt.Errorf("publishing event: %w", err)
	}

	p.logger.Debug().
		Str("message_id", id).
		Str("event_type", string(event.Type)).
		Msg("engine event published")
	return nil
}

// Close releases the Pub/Sub client.
func (p *PubSubPublisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}
