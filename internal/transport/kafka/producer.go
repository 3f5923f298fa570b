package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IBM/sarama"

	"service-dispatch/internal/fanout"
)

var newSyncProducer = sarama.NewSyncProducer

// EventPublisher mirrors fan-out events to a Kafka topic. Messages are keyed by
// delivery id, so the events of one delivery stay in partition order.
type EventPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewEventPublisher creates a publisher. It returns nil when Kafka is not configured.
func NewEventPublisher(brokers []string, topic string) (*EventPublisher, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" {
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := newSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return newEventPublisher(producer, topic), nil
}

func newEventPublisher(producer sarama.SyncProducer, topic string) *EventPublisher {
	return &EventPublisher{producer: producer, topic: topic}
}

// Publish implements fanout.Publisher.
func (p *EventPublisher) Publish(_ context.Context, e fanout.Event) error {
	if p == nil {
		return nil
	}
	value, err := json.Marshal(FromEvent(e))
	if err != nil {
		return fmt.Errorf("kafka: encode %s: %w", e.Type, err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(e.DeliveryID.String()),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(e.Type)},
		},
		Timestamp: e.OccurredAt,
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka: send %s: %w", e.Type, err)
	}
	return nil
}

// Close flushes and closes the producer.
func (p *EventPublisher) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
