package notify

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// PubSub publishes crawl messages to a Google Cloud Pub/Sub topic so other
// services can react to run progress.
type PubSub struct {
	topic   *pubsub.Topic
	subject string
}

// NewPubSub creates a Pub/Sub notifier for the given topic.
func NewPubSub(topic *pubsub.Topic, subject string) (*PubSub, error) {
	if topic == nil {
		return nil, fmt.Errorf("pubsub topic is required")
	}
	return &PubSub{topic: topic, subject: subject}, nil
}

// Send publishes the message and waits for the server ack.
func (p *PubSub) Send(ctx context.Context, text string) error {
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: []byte(text),
		Attributes: map[string]string{
			"subject": p.subject,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
