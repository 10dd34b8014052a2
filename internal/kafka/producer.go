// Package kafka publishes and reads frontier claim events.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"relentless-frontier/internal/models"
)

// ClaimPublisher publishes ClaimEvent messages.
type ClaimPublisher interface {
	PublishClaim(ctx context.Context, event models.ClaimEvent) error
}

// Producer wraps a Kafka writer for publishing claim events.
type Producer struct {
	writer MessageWriter
}

// NewProducer creates a Kafka producer for the given broker and topic.
func NewProducer(broker, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(broker),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: false,
		},
	}
}

// NewProducerWithWriter builds a producer using a custom writer (tests).
func NewProducerWithWriter(writer MessageWriter) *Producer {
	return &Producer{writer: writer}
}

// Close shuts down the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishClaim writes event keyed by entry key, so every event for one entry
// lands on the same partition.
func (p *Producer) PublishClaim(ctx context.Context, event models.ClaimEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.EntryKey),
		Value: payload,
		Time:  time.Now().UTC(),
	}

	return p.writer.WriteMessages(ctx, msg)
}

// DecodeClaim parses a claim event payload.
func DecodeClaim(payload []byte) (models.ClaimEvent, error) {
	var event models.ClaimEvent
	err := json.Unmarshal(payload, &event)
	return event, err
}

// NewReader returns a consumer-group reader for the claims topic.
func NewReader(broker, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   topic,
		GroupID: group,
	})
}
