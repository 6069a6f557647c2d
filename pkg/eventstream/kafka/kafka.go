// Package kafka publishes commit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/memoirhq/memoir/pkg/eventstream"
)

// Config holds connection settings for the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string
}

// Publisher writes commit events to Kafka, keyed by scope so events for the
// same page or user land on the same partition in order.
type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher creates a Kafka-backed eventstream publisher.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}

	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafkago.Hash{},
	}

	return &Publisher{writer: writer}, nil
}

// PublishCommit marshals the event to JSON and writes it to the topic.
func (p *Publisher) PublishCommit(ctx context.Context, event *eventstream.MemoryCommittedEvent) error {
	if event == nil {
		return eventstream.ErrNilCommitEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal commit event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Source.ScopeKind + ":" + event.Source.ScopeID),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write commit event: %w", err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
