package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"restaurant-pos/internal/logger"
)

type Consumer struct {
	reader *kafka.Reader
	log    *logger.Logger
}

// NewConsumer creates a new Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, log: log}
}

// Start consumes envelopes until ctx is cancelled. A message is committed
// once handler returns, whether or not it failed, so a poison message cannot
// stall the group.
func (c *Consumer) Start(ctx context.Context, handler func(ctx context.Context, env Envelope) error) error {
	c.log.Info("KAFKA", fmt.Sprintf("🔄 Kafka consumer started on %s", c.reader.Config().Topic))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			c.log.Error("KAFKA", fmt.Sprintf("❌ Error reading message: %v", err))
			continue
		}

		var env Envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			c.log.Warn("KAFKA", fmt.Sprintf("⚠️ Failed to unmarshal message at offset %d: %v", msg.Offset, err))
		} else if err := handler(ctx, env); err != nil {
			c.log.Error("KAFKA", fmt.Sprintf("Handler failed for %s %s: %v", env.Type, env.ID, err))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Error("KAFKA", fmt.Sprintf("Failed to commit offset %d: %v", msg.Offset, err))
		}
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
