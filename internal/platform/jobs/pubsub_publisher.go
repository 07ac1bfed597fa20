package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/rastuci/api/internal/platform/textutil"
	"github.com/rastuci/api/internal/services"
)

// PubSubNotificationPublisher publishes order notification jobs to a Pub/Sub topic.
type PubSubNotificationPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubNotificationPublisher constructs a Pub/Sub backed notification job publisher.
func NewPubSubNotificationPublisher(topic *pubsub.Topic) (*PubSubNotificationPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub notification publisher: topic is required")
	}
	return &PubSubNotificationPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishNotificationJob enqueues a notification job message on the configured topic.
func (p *PubSubNotificationPublisher) PublishNotificationJob(ctx context.Context, job services.NotificationJob) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub notification publisher: not initialised")
	}

	data, err := p.marshal(job)
	if err != nil {
		return fmt.Errorf("marshal notification job: %w", err)
	}

	attrs := textutil.NormalizeStringMap(map[string]string{
		"kind":        job.Kind,
		"orderId":     job.OrderID,
		"orderNumber": job.OrderNumber,
		"event":       job.Event,
	})

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish notification job: %w", err)
	}
	return nil
}
