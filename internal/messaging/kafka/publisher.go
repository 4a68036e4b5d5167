package kafka

import (
	"fmt"

	"github.com/vladislavdragonenkov/waiter/internal/domain"
)

// EventPublisherAdapter адаптирует Producer к доменному порту EventPublisher.
type EventPublisherAdapter struct {
	producer *Producer
}

// NewEventPublisher создаёт Kafka-реализацию domain.EventPublisher.
func NewEventPublisher(producer *Producer) domain.EventPublisher {
	return &EventPublisherAdapter{producer: producer}
}

// Publish отправляет уведомление с идентификатором заказа в указанный topic.
// Ключом сообщения служит сам идентификатор, чтобы события одного заказа
// попадали в одну partition.
func (p *EventPublisherAdapter) Publish(topic string, orderID string) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka event publisher is not initialized")
	}
	if orderID == "" {
		return fmt.Errorf("order id is required for publishing")
	}

	return p.producer.Publish(topic, orderID, NewOrderNotification(orderID))
}

var _ domain.EventPublisher = (*EventPublisherAdapter)(nil)
