package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"restaurant-pos/internal/logger"
)

// Publisher writes one keyed JSON message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
	Close() error
}

type Producer struct {
	Writer *kafka.Writer
	log    *logger.Logger
}

// NewProducer returns an asynchronous producer. Delivery failures are logged
// from the completion callback instead of failing the caller.
func NewProducer(brokers []string, log *logger.Logger) *Producer {
	p := &Producer{log: log}
	p.Writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion:             p.completion,
	}
	return p
}

// Publish streams value as JSON keyed by key, so events of one document stay ordered.
func (p *Producer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	msgBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	p.log.Debug("KAFKA", fmt.Sprintf("Publishing to Kafka [%s] key=%s", topic, key))

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	})
}

func (p *Producer) completion(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		p.log.LogKafka("DELIVERY_FAILED", m.Topic, fmt.Sprintf("key=%s: %v", string(m.Key), err))
	}
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// NoopPublisher drops every message. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }
func (NoopPublisher) Close() error                                              { return nil }
