// Package completion обрабатывает входящие уведомления о готовых заказах.
package completion

import (
	"context"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/waiter/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/waiter/internal/metrics"
)

// Listener — stateless-обработчик уведомлений "заказ готов".
// Гарантий порядка и дедупликации нет: каждое сообщение обрабатывается
// независимо, повторная доставка допустима.
type Listener struct {
	logger  *log.Entry
	metrics *metrics.WaiterMetrics
}

// NewListener создаёт обработчик уведомлений о готовых заказах.
func NewListener(m *metrics.WaiterMetrics, logger *log.Entry) *Listener {
	if logger == nil {
		logger = log.New().WithField("component", "completion-listener")
	}
	return &Listener{
		logger:  logger,
		metrics: m,
	}
}

// Handle фиксирует факт готовности заказа. Любая ошибка обработки
// логируется и проглатывается: некорректное сообщение не должно
// останавливать цикл потребления, поэтому Handle всегда возвращает nil.
func (l *Listener) Handle(_ context.Context, message *sarama.ConsumerMessage) error {
	orderID, err := kafka.ParseOrderNotification(message)
	if err != nil {
		l.logger.WithError(err).Warn("dropping malformed finished-order notification")
		return nil
	}

	l.metrics.RecordOrderFinished()
	l.logger.WithField("order_id", orderID).Info("we've finished an order")
	return nil
}

var _ kafka.MessageHandler = (&Listener{}).Handle
