package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher returns an async publisher: Publish only enqueues, and
// delivery failures are reported to logger.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			Async:                  true,
			BatchSize:              1,
			BatchTimeout:           10 * time.Millisecond,
			MaxAttempts:            3,
			WriteTimeout:           5 * time.Second,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					logger.Error("event_publish_failed", "topic", topic, "messages", len(messages), "error", err)
				}
			},
		},
	}
}

// Publish keys messages by user id so one user's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, ev AuthEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.UserID, 10)),
		Value: data,
		Time:  ev.At,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write to %s: %w", p.writer.Topic, err)
	}
	return nil
}

// Close flushes queued messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
