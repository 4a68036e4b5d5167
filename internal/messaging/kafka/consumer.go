package kafka

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// MessageHandler обрабатывает одно сообщение из Kafka.
type MessageHandler func(ctx context.Context, message *sarama.ConsumerMessage) error

// deadLetter — содержимое сообщения, уходящего в DLQ после исчерпания retry.
type deadLetter struct {
	Topic      string `json:"original_topic"`
	Partition  int32  `json:"original_partition"`
	Offset     int64  `json:"original_offset"`
	Key        string `json:"original_key"`
	Value      string `json:"original_value"`
	Error      string `json:"error_message"`
	FailedAt   string `json:"failed_at"`
	RetryCount int    `json:"retry_count"`
}

// Consumer читает topics в составе consumer group. Сообщения, которые не
// удалось обработать за maxRetries попыток, перекладываются в DLQ.
type Consumer struct {
	group      sarama.ConsumerGroup
	topics     []string
	handler    MessageHandler
	dlq        *Producer
	maxRetries int
	logger     *log.Entry
	wg         sync.WaitGroup
}

// NewConsumerWithDLQ создаёт consumer group. dlq может быть nil — тогда
// сообщение после исчерпания попыток остаётся непомеченным и будет
// доставлено повторно.
func NewConsumerWithDLQ(brokers []string, groupID string, topics []string, handler MessageHandler, dlq *Producer, maxRetries int) (*Consumer, error) {
	cfg := sarama.NewConfig()
	cfg.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer group: %w", err)
	}

	return &Consumer{
		group:      group,
		topics:     topics,
		handler:    handler,
		dlq:        dlq,
		maxRetries: maxRetries,
		logger:     log.WithField("component", "kafka-consumer"),
	}, nil
}

// Start запускает цикл потребления в фоне до отмены контекста.
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			// Consume возвращается при каждом rebalance, поэтому крутимся в цикле.
			if err := c.group.Consume(ctx, c.topics, c); err != nil {
				c.logger.WithError(err).Error("consume loop error")
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			c.logger.WithError(err).Error("consumer group error")
		}
	}()

	c.logger.WithField("topics", c.topics).Info("kafka consumer started")
	return nil
}

// Stop закрывает consumer group и дожидается фоновых goroutines.
func (c *Consumer) Stop() error {
	if err := c.group.Close(); err != nil {
		return fmt.Errorf("close kafka consumer group: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return nil
}

// Setup реализует sarama.ConsumerGroupHandler.
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup реализует sarama.ConsumerGroupHandler.
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim обрабатывает поток сообщений одной partition. Сообщение
// маркируется обработанным только после успеха handler'а или ухода в DLQ.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}

			if err := c.process(session.Context(), message); err != nil {
				c.logger.WithError(err).WithFields(log.Fields{
					"topic":     message.Topic,
					"partition": message.Partition,
					"offset":    message.Offset,
				}).Error("message left unmarked for redelivery")
				continue
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// process вызывает handler и решает судьбу сообщения при ошибке:
// до maxRetries — оставить на redelivery, дальше — переложить в DLQ.
func (c *Consumer) process(ctx context.Context, message *sarama.ConsumerMessage) error {
	err := c.handler(ctx, message)
	if err == nil {
		return nil
	}

	attempts := retryCount(message)
	if attempts < c.maxRetries {
		c.logger.WithFields(log.Fields{
			"topic":       message.Topic,
			"retry_count": attempts,
			"max_retries": c.maxRetries,
		}).Warn("message processing failed, will retry")
		return err
	}

	if c.dlq == nil {
		return err
	}

	letter := deadLetter{
		Topic:      message.Topic,
		Partition:  message.Partition,
		Offset:     message.Offset,
		Key:        string(message.Key),
		Value:      string(message.Value),
		Error:      err.Error(),
		FailedAt:   time.Now().UTC().Format(time.RFC3339),
		RetryCount: attempts,
	}
	if dlqErr := c.dlq.Publish(TopicDeadLetterQueue, letter.Key, letter); dlqErr != nil {
		return fmt.Errorf("send to dlq: %w", dlqErr)
	}

	c.logger.WithFields(log.Fields{
		"topic":       message.Topic,
		"retry_count": attempts,
	}).Info("message moved to dlq after max retries")
	return nil
}

// retryCount читает счётчик попыток из headers сообщения.
func retryCount(message *sarama.ConsumerMessage) int {
	for _, header := range message.Headers {
		if string(header.Key) != HeaderRetryCount {
			continue
		}
		if count, err := strconv.Atoi(string(header.Value)); err == nil {
			return count
		}
	}
	return 0
}
