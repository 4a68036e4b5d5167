// Package order содержит оркестратор жизненного цикла кофейного заказа:
// валидация, расчёт суммы, персистентность и публикация событий.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/waiter/internal/admission"
	"github.com/vladislavdragonenkov/waiter/internal/domain"
	"github.com/vladislavdragonenkov/waiter/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/waiter/internal/metrics"
)

// Config задаёт параметры сервиса, которые в оригинале были бы ambient-состоянием:
// идентификатор официанта, скидка и topic для уведомлений задаются явно,
// чтобы тесты могли их контролировать.
type Config struct {
	// WaiterPrefix — префикс идентификатора экземпляра сервиса.
	WaiterPrefix string
	// DiscountPct — процентный множитель цены, применяемый при создании заказа.
	DiscountPct int64
	// Currency — валюта заказов.
	Currency string
	// NewOrdersTopic — topic для уведомлений об оплаченных заказах.
	NewOrdersTopic string
}

func (c *Config) applyDefaults() {
	if c.WaiterPrefix == "" {
		c.WaiterPrefix = "springbucks-"
	}
	if c.DiscountPct <= 0 {
		c.DiscountPct = 100
	}
	if c.Currency == "" {
		c.Currency = "TWD"
	}
	if c.NewOrdersTopic == "" {
		c.NewOrdersTopic = kafka.TopicNewOrders
	}
}

// Service оркестрирует операции над заказами. Операции создания и чтения
// проходят через admission control до обращения к бизнес-логике.
type Service struct {
	repo      domain.OrderRepository
	publisher domain.EventPublisher
	limiter   *admission.Limiter
	pricer    domain.Pricer
	metrics   *metrics.WaiterMetrics
	logger    *log.Entry
	cfg       Config

	// waiterID присваивается один раз при создании сервиса.
	waiterID string
}

// NewService конструирует сервис с зависимостями.
func NewService(
	repo domain.OrderRepository,
	publisher domain.EventPublisher,
	limiter *admission.Limiter,
	pricer domain.Pricer,
	m *metrics.WaiterMetrics,
	cfg Config,
	logger *log.Entry,
) *Service {
	cfg.applyDefaults()
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	if pricer == nil {
		pricer = domain.NewDiscountPricer(cfg.DiscountPct)
	}

	return &Service{
		repo:      repo,
		publisher: publisher,
		limiter:   limiter,
		pricer:    pricer,
		metrics:   m,
		logger:    logger,
		cfg:       cfg,
		waiterID:  cfg.WaiterPrefix + uuid.NewString(),
	}
}

// WaiterID возвращает идентификатор экземпляра, присваиваемый заказам.
func (s *Service) WaiterID() string {
	return s.waiterID
}

// CreateOrder валидирует вход, считает сумму и сохраняет заказ в состоянии INIT.
// Событие при создании не публикуется. Ошибки валидации возвращаются до
// обращения к хранилищу.
func (s *Service) CreateOrder(ctx context.Context, customer string, items []domain.OrderItem) (domain.Order, error) {
	if err := s.acquire(ctx, admission.CategoryWrite); err != nil {
		return domain.Order{}, err
	}

	if customer == "" {
		return domain.Order{}, domain.ErrCustomerRequired
	}
	if len(items) == 0 {
		return domain.Order{}, domain.ErrItemsRequired
	}

	now := time.Now().UTC()
	orderItems := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		if item.Name == "" {
			return domain.Order{}, domain.ErrItemNameRequired
		}
		orderItems = append(orderItems, domain.OrderItem{
			ID:         uuid.NewString(),
			Name:       item.Name,
			PriceMinor: item.PriceMinor,
			CreatedAt:  now,
		})
	}

	total, err := s.pricer.Total(orderItems)
	if err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		Customer:    customer,
		State:       domain.OrderStateInit,
		Currency:    s.cfg.Currency,
		TotalMinor:  total,
		Waiter:      s.waiterID,
		DiscountPct: s.cfg.DiscountPct,
		Items:       orderItems,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, errs[0]
	}

	saved, err := s.repo.Save(order)
	if err != nil {
		return domain.Order{}, fmt.Errorf("save order: %w", err)
	}

	s.metrics.RecordOrderCreated()
	s.logger.WithFields(log.Fields{
		"order_id":    saved.ID,
		"customer":    saved.Customer,
		"total_minor": saved.TotalMinor,
	}).Info("new order created")

	return saved, nil
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	if err := s.acquire(ctx, admission.CategoryRead); err != nil {
		return domain.Order{}, err
	}

	return s.repo.Get(id)
}

// UpdateState переводит заказ в запрошенное состояние. Возвращает false без
// ошибки, если заказ отсутствует или переход не монотонный. Ошибка записи
// фатальна для вызова и возвращается наружу; успешный переход в PAID
// дополнительно публикует уведомление в new-orders topic уже после записи.
func (s *Service) UpdateState(ctx context.Context, order *domain.Order, state domain.OrderState) (bool, error) {
	if order == nil {
		s.logger.Warn("can not find order")
		return false, nil
	}
	if !domain.CanTransition(order.State, state) {
		s.logger.WithFields(log.Fields{
			"order_id":  order.ID,
			"current":   order.State.String(),
			"requested": state.String(),
		}).Warn("wrong state transition requested")
		return false, nil
	}

	order.State = state
	order.UpdatedAt = time.Now().UTC()

	saved, err := s.repo.Save(*order)
	if err != nil {
		return false, fmt.Errorf("save order %s: %w", order.ID, err)
	}
	*order = saved

	s.metrics.RecordStateTransition(state.String())
	s.logger.WithFields(log.Fields{
		"order_id": saved.ID,
		"state":    state.String(),
	}).Info("order state updated")

	if state == domain.OrderStatePaid {
		// Публикация выполняется после фиксации записи; сбой публикации
		// не откатывает уже сохранённое состояние и не повторяется здесь.
		if err := s.publisher.Publish(s.cfg.NewOrdersTopic, saved.ID); err != nil {
			s.metrics.RecordPublishFailure()
			s.logger.WithError(err).WithField("order_id", saved.ID).
				Error("failed to publish new order notification")
		} else {
			s.metrics.RecordEventPublished()
			s.logger.WithField("order_id", saved.ID).Info("sent order to barista for processing")
		}
	}

	return true, nil
}

func (s *Service) acquire(ctx context.Context, category admission.Category) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Acquire(ctx, category)
}
