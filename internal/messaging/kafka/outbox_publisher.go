package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/webshop/internal/domain"
)

// OutboxPublisher отправляет outbox-сообщения в один topic.
type OutboxPublisher struct {
	producer *Producer
	topic    string
	now      func() time.Time
}

// NewOutboxPublisher создаёт паблишер; пустой topic заменяется на TopicOrderEvents.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxPublisher{producer: producer, topic: topic, now: time.Now}
}

// Publish отправляет сообщение в конверте Envelope с ключом по заказу.
func (p *OutboxPublisher) Publish(ctx context.Context, msg domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	envelope := NewEnvelope(msg, p.now())
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal outbox envelope: %w", err)
	}

	return p.producer.Send(ctx, Message{
		Topic: p.topic,
		Key:   envelope.PartitionKey(),
		Value: body,
		Headers: map[string]string{
			HeaderEventType: msg.EventType,
			HeaderOutboxID:  msg.ID,
		},
	})
}

var _ domain.OutboxPublisher = (*OutboxPublisher)(nil)
