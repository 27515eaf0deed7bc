package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"recoup/internal/platform/config"
)

// KafkaPublisher produces case events to a single topic, keyed by case ID so
// per-case ordering survives partitioning. Produce is fire-and-forget with a
// logged callback; delivery failures never surface to the transition commit.
type KafkaPublisher struct {
	client *kgo.Client
	logger *slog.Logger
}

func NewKafkaPublisher(cfg config.KafkaConfig, logger *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, logger: logger}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event CaseEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal case event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(event.CaseID.String()),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("case event delivery failed",
				"kind", string(event.Kind),
				"case_id", event.CaseID.String(),
				"error", err.Error(),
			)
		}
	})
	return nil
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}
