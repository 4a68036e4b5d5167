package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/waiter/internal/domain"
	"github.com/vladislavdragonenkov/waiter/internal/messaging/kafka"
)

// initEventPublisher инициализирует Kafka producer и адаптер публикации.
// Возвращает nil, nil если brokers пустой или producer создать не удалось;
// сервис в этом случае продолжает работать без публикации событий.
func initEventPublisher(brokers string, logger *log.Entry) (*kafka.Producer, domain.EventPublisher) {
	if brokers == "" {
		return nil, nil
	}

	brokerList := strings.Split(brokers, ",")
	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, nil
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, kafka.NewEventPublisher(producer)
}

// initFinishedOrdersConsumer создаёт consumer уведомлений о готовых заказах.
// Producer переиспользуется как DLQ-отправитель, если он есть.
func initFinishedOrdersConsumer(
	brokers string,
	groupID string,
	handler kafka.MessageHandler,
	dlqProducer *kafka.Producer,
	logger *log.Entry,
) (*kafka.Consumer, error) {
	if brokers == "" {
		return nil, nil
	}

	brokerList := strings.Split(brokers, ",")
	consumer, err := kafka.NewConsumerWithDLQ(
		brokerList,
		groupID,
		[]string{kafka.TopicFinishedOrders},
		handler,
		dlqProducer,
		3,
	)
	if err != nil {
		return nil, err
	}

	logger.WithFields(log.Fields{
		"brokers": brokerList,
		"group":   groupID,
		"topic":   kafka.TopicFinishedOrders,
	}).Info("finished-orders consumer initialized")
	return consumer, nil
}

// closeKafkaProducer закрывает Kafka producer, если он не nil.
func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
