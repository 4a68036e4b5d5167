package kafka

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// Topics для Kafka.
const (
	// TopicNewOrders — уведомления бариста об оплаченных заказах.
	TopicNewOrders = "waiter.orders.new"
	// TopicFinishedOrders — входящие уведомления о готовых заказах.
	TopicFinishedOrders = "waiter.orders.finished"
	// TopicDeadLetterQueue — Dead Letter Queue для failed messages.
	TopicDeadLetterQueue = "waiter.orders.dlq"
)

// Kafka headers для retry логики.
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderNotification — полезная нагрузка уведомления о заказе.
// Наружу передаётся только идентификатор заказа.
type OrderNotification struct {
	OrderID   string    `json:"order_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderNotification создаёт уведомление для указанного заказа.
func NewOrderNotification(orderID string) *OrderNotification {
	return &OrderNotification{
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
	}
}

// ParseOrderNotification извлекает идентификатор заказа из сообщения.
// Принимает как JSON-нотификацию, так и голый идентификатор в теле —
// внешние producers не обязаны использовать наш конверт.
func ParseOrderNotification(message *sarama.ConsumerMessage) (string, error) {
	if message == nil || len(message.Value) == 0 {
		return "", fmt.Errorf("empty order notification")
	}

	var notification OrderNotification
	if err := json.Unmarshal(message.Value, &notification); err == nil && notification.OrderID != "" {
		return notification.OrderID, nil
	}

	// JSON-строка ("42") или произвольный сырой идентификатор.
	var raw string
	if err := json.Unmarshal(message.Value, &raw); err == nil && raw != "" {
		return raw, nil
	}

	id := string(bytes.TrimSpace(message.Value))
	if id == "" || bytes.ContainsAny(message.Value, "{}[]") {
		return "", fmt.Errorf("unparseable order notification: %q", string(message.Value))
	}
	return id, nil
}
