// Package admission реализует per-category token bucket с fixed-window
// пополнением: счётчик разрешений сбрасывается до capacity на границах окна,
// выровненных по моменту создания bucket'а.
package admission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/waiter/internal/metrics"
)

// Category задаёт независимо настраиваемую категорию admission control.
type Category string

const (
	// CategoryRead — щадящий bucket для операций чтения.
	CategoryRead Category = "read"
	// CategoryWrite — строгий bucket для создания заказов.
	CategoryWrite Category = "write"
)

// ErrRejected возвращается, когда разрешение не получено в пределах max-wait.
// Это сигнал перегрузки, а не бизнес-ошибка: вызывающая сторона сама решает,
// повторять запрос или сбрасывать.
var ErrRejected = errors.New("admission rejected: no permit available")

// BucketConfig описывает настройки одного bucket'а.
type BucketConfig struct {
	// Capacity — максимум разрешений на одно окно.
	Capacity int
	// RefreshPeriod — длительность окна, по границам которого счётчик
	// восстанавливается до Capacity.
	RefreshPeriod time.Duration
	// MaxWait — сколько вызов может ждать появления разрешения.
	MaxWait time.Duration
}

func (c BucketConfig) validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	if c.RefreshPeriod <= 0 {
		return fmt.Errorf("refresh period must be positive, got %s", c.RefreshPeriod)
	}
	if c.MaxWait < 0 {
		return fmt.Errorf("max wait must be non-negative, got %s", c.MaxWait)
	}
	return nil
}

// bucket хранит счётчик разрешений одной категории.
// Все изменения available и windowStart выполняются под mu.
type bucket struct {
	mu          sync.Mutex
	capacity    int
	available   int
	windowStart time.Time
	period      time.Duration
	maxWait     time.Duration
}

// refillLocked сдвигает окно вперёд и восстанавливает счётчик,
// если граница окна пройдена. Вызывается только под mu.
func (b *bucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.windowStart)
	if elapsed < b.period {
		return
	}
	windows := elapsed / b.period
	b.windowStart = b.windowStart.Add(windows * b.period)
	b.available = b.capacity
}

// Limiter выдаёт разрешения на выполнение операций по категориям.
type Limiter struct {
	buckets map[Category]*bucket
	metrics *metrics.WaiterMetrics
	logger  *log.Entry

	// now переопределяется в тестах для детерминированных окон.
	now func() time.Time
}

// NewLimiter создаёт limiter из конфигурации категорий. Некорректная
// конфигурация — ошибка старта процесса, а не runtime-условие.
func NewLimiter(configs map[Category]BucketConfig, m *metrics.WaiterMetrics, logger *log.Entry) (*Limiter, error) {
	if len(configs) == 0 {
		return nil, errors.New("admission: at least one category must be configured")
	}
	if logger == nil {
		logger = log.New().WithField("component", "admission")
	}

	l := &Limiter{
		buckets: make(map[Category]*bucket, len(configs)),
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}

	start := l.now()
	for category, cfg := range configs {
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("admission: category %q: %w", category, err)
		}
		l.buckets[category] = &bucket{
			capacity:    cfg.Capacity,
			available:   cfg.Capacity,
			windowStart: start,
			period:      cfg.RefreshPeriod,
			maxWait:     cfg.MaxWait,
		}
		m.SetAvailablePermits(string(category), cfg.Capacity)
	}

	return l, nil
}

// Acquire пытается получить разрешение категории. Если разрешений нет,
// вызов кооперативно ждёт до границы следующего окна, но не дольше max-wait.
// Исчерпание max-wait возвращает ErrRejected; отмена контекста — ctx.Err().
// Обращение к незарегистрированной категории — ошибка программирования.
func (l *Limiter) Acquire(ctx context.Context, category Category) error {
	b, ok := l.buckets[category]
	if !ok {
		panic(fmt.Sprintf("admission: category %q is not configured", category))
	}

	deadline := l.now().Add(b.maxWait)
	for {
		now := l.now()

		b.mu.Lock()
		b.refillLocked(now)
		if b.available > 0 {
			b.available--
			remaining := b.available
			b.mu.Unlock()

			l.metrics.RecordAdmissionAcquired(string(category))
			l.metrics.SetAvailablePermits(string(category), remaining)
			return nil
		}
		nextRefill := b.windowStart.Add(b.period)
		b.mu.Unlock()

		if !now.Before(deadline) {
			l.metrics.RecordAdmissionRejected(string(category))
			l.logger.WithFields(log.Fields{
				"category": category,
				"max_wait": b.maxWait,
			}).Warn("admission rejected: permit wait exceeded max-wait")
			return fmt.Errorf("category %q: %w", category, ErrRejected)
		}

		wait := nextRefill.Sub(now)
		if until := deadline.Sub(now); until < wait {
			wait = until
		}
		// Небольшой запас, чтобы проснуться уже за границей окна.
		timer := time.NewTimer(wait + time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Available возвращает текущее количество разрешений категории
// с учётом пополнения. Используется наблюдаемостью и тестами.
func (l *Limiter) Available(category Category) int {
	b, ok := l.buckets[category]
	if !ok {
		panic(fmt.Sprintf("admission: category %q is not configured", category))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked(l.now())
	return b.available
}
