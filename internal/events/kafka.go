package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/database/kafka"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
)

// KafkaPublisher writes events to the configured Kafka topic. Messages are
// keyed by run ID so one run's events stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafkago.Writer
}

// NewKafkaPublisher creates a KafkaPublisher over the shared Kafka client.
func NewKafkaPublisher(client *kafka.Client) *KafkaPublisher {
	return &KafkaPublisher{writer: client.Writer}
}

// RunCompleted publishes a run_completed event.
func (p *KafkaPublisher) RunCompleted(ctx context.Context, summary models.RunSummary) error {
	return p.publish(ctx, summary.RunID, Event{
		Type:       TypeRunCompleted,
		OccurredAt: time.Now().UTC(),
		Summary:    &summary,
	})
}

// UpdateResolved publishes an update_resolved event.
func (p *KafkaPublisher) UpdateResolved(ctx context.Context, update models.ProposedUpdate) error {
	return p.publish(ctx, update.RunID, Event{
		Type:       TypeUpdateResolved,
		OccurredAt: time.Now().UTC(),
		Update:     &update,
	})
}

func (p *KafkaPublisher) publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}
	if err := p.writer.WriteMessages(ctx, kafkago.Message{Key: []byte(key), Value: payload}); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

var _ Publisher = (*KafkaPublisher)(nil)
