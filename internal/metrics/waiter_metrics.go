package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// WaiterMetrics содержит метрики обработки заказов и admission control.
type WaiterMetrics struct {
	// Счётчики заказов
	ordersCreated    prometheus.Counter
	ordersFinished   prometheus.Counter
	stateTransitions *prometheus.CounterVec

	// Публикация событий
	eventsPublished prometheus.Counter
	publishFailures prometheus.Counter

	// Admission control
	admissionAcquired *prometheus.CounterVec
	admissionRejected *prometheus.CounterVec
	availablePermits  *prometheus.GaugeVec
}

// NewWaiterMetrics создаёт и регистрирует метрики в default registry.
func NewWaiterMetrics() *WaiterMetrics {
	return newWaiterMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newWaiterMetricsWithRegisterer(registerer prometheus.Registerer) *WaiterMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &WaiterMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "waiter_orders_created_total",
			Help: "Total number of coffee orders created",
		}),
		ordersFinished: registerCounter(registerer, prometheus.CounterOpts{
			Name: "waiter_orders_finished_total",
			Help: "Total number of finished-order notifications processed",
		}),
		stateTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "waiter_order_state_transitions_total",
			Help: "Total number of successful order state transitions",
		}, []string{"state"}),
		eventsPublished: registerCounter(registerer, prometheus.CounterOpts{
			Name: "waiter_order_events_published_total",
			Help: "Total number of new-order events published",
		}),
		publishFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "waiter_order_publish_failures_total",
			Help: "Total number of failed new-order event publishes",
		}),
		admissionAcquired: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "waiter_admission_acquired_total",
			Help: "Total number of granted admission permits",
		}, []string{"category"}),
		admissionRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "waiter_admission_rejected_total",
			Help: "Total number of rejected admission requests",
		}, []string{"category"}),
		availablePermits: registerGaugeVec(registerer, prometheus.GaugeOpts{
			Name: "waiter_admission_available_permits",
			Help: "Currently available admission permits per category",
		}, []string{"category"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGaugeVec(registerer prometheus.Registerer, opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	collector := prometheus.NewGaugeVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.GaugeVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *WaiterMetrics) RecordOrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// RecordOrderFinished увеличивает счётчик обработанных уведомлений о готовности.
func (m *WaiterMetrics) RecordOrderFinished() {
	if m == nil {
		return
	}
	m.ordersFinished.Inc()
}

// RecordStateTransition увеличивает счётчик переходов в указанное состояние.
func (m *WaiterMetrics) RecordStateTransition(state string) {
	if m == nil {
		return
	}
	m.stateTransitions.WithLabelValues(state).Inc()
}

// RecordEventPublished увеличивает счётчик опубликованных событий.
func (m *WaiterMetrics) RecordEventPublished() {
	if m == nil {
		return
	}
	m.eventsPublished.Inc()
}

// RecordPublishFailure увеличивает счётчик неудачных публикаций.
func (m *WaiterMetrics) RecordPublishFailure() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

// RecordAdmissionAcquired увеличивает счётчик выданных разрешений.
func (m *WaiterMetrics) RecordAdmissionAcquired(category string) {
	if m == nil {
		return
	}
	m.admissionAcquired.WithLabelValues(category).Inc()
}

// RecordAdmissionRejected увеличивает счётчик отклонённых запросов.
func (m *WaiterMetrics) RecordAdmissionRejected(category string) {
	if m == nil {
		return
	}
	m.admissionRejected.WithLabelValues(category).Inc()
}

// SetAvailablePermits обновляет gauge доступных разрешений категории.
func (m *WaiterMetrics) SetAvailablePermits(category string, permits int) {
	if m == nil {
		return
	}
	m.availablePermits.WithLabelValues(category).Set(float64(permits))
}
