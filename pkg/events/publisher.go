// Package events publishes entry changes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/unowned-ai/daybook/pkg/entries"
)

const (
	sourceService = "daybook"
	schemaVersion = "v1"
)

// EntryEvent is the message value published for every entry write.
type EntryEvent struct {
	EventID    string                  `json:"eventId"`
	EventType  string                  `json:"eventType"`
	OccurredAt time.Time               `json:"occurredAt"`
	Entry      entries.SerializedEntry `json:"entry"`
}

// NewSyncProducer builds a producer for brokers with settings suited to a
// low volume of small, ordered messages.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.ClientID = sourceService

	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.MaxMessageBytes = 1024 * 1024

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer for %s: %w", strings.Join(brokers, ","), err)
	}
	return producer, nil
}

// KafkaPublisher sends EntryEvents keyed by entry uuid so every change to one
// entry lands on the same partition.
type KafkaPublisher struct {
	logger   *slog.Logger
	producer sarama.SyncProducer
	topic    string
	now      func() time.Time
}

func NewKafkaPublisher(logger *slog.Logger, producer sarama.SyncProducer, topic string) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{
		logger:   logger,
		producer: producer,
		topic:    topic,
		now:      time.Now,
	}
}

func (p *KafkaPublisher) PublishEntryEvent(ctx context.Context, eventType string, entry entries.SerializedEntry) error {
	event := EntryEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: p.now().UTC(),
		Entry:      entry,
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(entry.UUID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(eventType)},
			{Key: []byte("event_id"), Value: []byte(event.EventID)},
			{Key: []byte("source_service"), Value: []byte(sourceService)},
			{Key: []byte("schema_version"), Value: []byte(schemaVersion)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish %s event to topic %s: %w", eventType, p.topic, err)
	}

	p.logger.DebugContext(ctx, "published entry event",
		slog.String("event_type", eventType),
		slog.String("event_id", event.EventID),
		slog.String("uuid", entry.UUID),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishEntryEvent(context.Context, string, entries.SerializedEntry) error { return nil }

func (Nop) Close() error { return nil }
