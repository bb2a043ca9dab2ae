package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/catppuccinifier/internal/config"
	"github.com/aliskhannn/catppuccinifier/internal/model"
)

// Producer publishes job completion events.
type Producer struct {
	Client   *wbfkafka.Producer
	strategy retry.Strategy
}

// New creates a new Producer writing to the events topic.
func New(cfg *config.Kafka, s retry.Strategy) *Producer {
	return &Producer{
		Client:   wbfkafka.NewProducer(cfg.Brokers, cfg.EventsTopic),
		strategy: s,
	}
}

// Produce serializes the event to JSON and sends it to Kafka.
// The job ID is used as the message key, so all events of a job share a
// partition.
func (p *Producer) Produce(ctx context.Context, ev model.Event) error {
	data, err := MarshalEvent(ev)
	if err != nil {
		return err
	}

	if err = p.Client.SendWithRetry(ctx, p.strategy, []byte(ev.JobID.String()), data); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}

	return nil
}

// MarshalEvent encodes ev for the events topic. Output bytes are never
// included; clients fetch them by key.
func MarshalEvent(ev model.Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}
