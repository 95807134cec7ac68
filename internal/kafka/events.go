package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"restaurant-pos/internal/config"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

// Event types carried in Envelope.Type.
const (
	OrderPlaced    = "order.placed"
	OrderUpdated   = "order.updated"
	OrderCancelled = "order.cancelled"
	BillGenerated  = "bill.generated"
	BillPaid       = "bill.paid"
	BillVoided     = "bill.voided"
	PaymentAdded   = "payment.added"
)

// Envelope wraps every event on the wire.
type Envelope struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Events publishes domain events on the configured topics. Publishing is best
// effort: failures are logged and never returned to the caller.
type Events struct {
	pub    Publisher
	topics config.TopicConfig
	log    *logger.Logger
}

func NewEvents(pub Publisher, topics config.TopicConfig, log *logger.Logger) *Events {
	if pub == nil {
		pub = NoopPublisher{}
	}
	return &Events{pub: pub, topics: topics, log: log}
}

func (e *Events) Order(ctx context.Context, eventType string, order *models.Order) {
	e.publish(ctx, e.topics.OrderEvents, eventType, order.ID, order)
}

func (e *Events) KOT(ctx context.Context, ev *models.KOTEvent) {
	e.publish(ctx, e.topics.KOTEvents, ev.Type, ev.KOT.ID, ev)
}

func (e *Events) Bill(ctx context.Context, eventType string, bill *models.Bill) {
	e.publish(ctx, e.topics.BillEvents, eventType, bill.ID, bill)
}

func (e *Events) publish(ctx context.Context, topic, eventType, key string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		e.log.Error("KAFKA", fmt.Sprintf("Failed to marshal %s event: %v", eventType, err))
		return
	}
	env := Envelope{Type: eventType, ID: key, OccurredAt: time.Now().UTC(), Data: raw}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := e.pub.Publish(ctx, topic, key, env); err != nil {
		e.log.LogKafka("PUBLISH_FAILED", topic, fmt.Sprintf("%s %s: %v", eventType, key, err))
		return
	}
	e.log.LogKafka("PUBLISHED", topic, fmt.Sprintf("%s %s", eventType, key))
}

func (e *Events) Close() error {
	return e.pub.Close()
}
