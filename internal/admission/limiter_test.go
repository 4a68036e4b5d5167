package admission

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger.WithField("component", "admission-test")
}

func newTestLimiter(t *testing.T, configs map[Category]BucketConfig) *Limiter {
	t.Helper()
	limiter, err := NewLimiter(configs, nil, testLogger())
	if err != nil {
		t.Fatalf("NewLimiter: %v", err)
	}
	return limiter
}

func TestNewLimiter_InvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  BucketConfig
	}{
		{name: "zero capacity", cfg: BucketConfig{Capacity: 0, RefreshPeriod: time.Second}},
		{name: "negative capacity", cfg: BucketConfig{Capacity: -1, RefreshPeriod: time.Second}},
		{name: "zero period", cfg: BucketConfig{Capacity: 1, RefreshPeriod: 0}},
		{name: "negative max wait", cfg: BucketConfig{Capacity: 1, RefreshPeriod: time.Second, MaxWait: -time.Second}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewLimiter(map[Category]BucketConfig{CategoryRead: tc.cfg}, nil, testLogger()); err == nil {
				t.Fatal("expected configuration error")
			}
		})
	}
}

func TestNewLimiter_EmptyConfig(t *testing.T) {
	if _, err := NewLimiter(nil, nil, testLogger()); err == nil {
		t.Fatal("expected error for empty configuration")
	}
}

func TestAcquire_UnknownCategoryPanics(t *testing.T) {
	limiter := newTestLimiter(t, map[Category]BucketConfig{
		CategoryRead: {Capacity: 1, RefreshPeriod: time.Second},
	})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unregistered category")
		}
	}()
	_ = limiter.Acquire(context.Background(), CategoryWrite)
}

// Сценарий из домена: capacity=3, длинное окно, max-wait меньше окна.
// Первые три вызова проходят сразу, четвёртый отклоняется.
func TestAcquire_RejectsWhenWindowExhausted(t *testing.T) {
	limiter := newTestLimiter(t, map[Category]BucketConfig{
		CategoryWrite: {Capacity: 3, RefreshPeriod: 30 * time.Second, MaxWait: 20 * time.Millisecond},
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := limiter.Acquire(ctx, CategoryWrite); err != nil {
			t.Fatalf("acquire %d: %v", i+1, err)
		}
	}

	err := limiter.Acquire(ctx, CategoryWrite)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestAcquire_ZeroMaxWaitRejectsImmediately(t *testing.T) {
	limiter := newTestLimiter(t, map[Category]BucketConfig{
		CategoryRead: {Capacity: 1, RefreshPeriod: time.Minute, MaxWait: 0},
	})

	ctx := context.Background()
	if err := limiter.Acquire(ctx, CategoryRead); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	start := time.Now()
	err := limiter.Acquire(ctx, CategoryRead)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("zero max-wait should reject without blocking, took %s", elapsed)
	}
}

// Блокирующийся вызов должен получить разрешение, если граница окна
// пересекается до истечения max-wait.
func TestAcquire_BlocksUntilRefresh(t *testing.T) {
	limiter := newTestLimiter(t, map[Category]BucketConfig{
		CategoryWrite: {Capacity: 1, RefreshPeriod: 50 * time.Millisecond, MaxWait: time.Second},
	})

	ctx := context.Background()
	if err := limiter.Acquire(ctx, CategoryWrite); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	start := time.Now()
	if err := limiter.Acquire(ctx, CategoryWrite); err != nil {
		t.Fatalf("blocking acquire: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed > 500*time.Millisecond {
		t.Errorf("acquire should have succeeded near the window boundary, took %s", elapsed)
	}
}

func TestAcquire_FixedWindowRefill(t *testing.T) {
	limiter := newTestLimiter(t, map[Category]BucketConfig{
		CategoryRead: {Capacity: 2, RefreshPeriod: time.Minute, MaxWait: 0},
	})

	// Управляем временем вручную: переводим limiter за границу окна.
	base := time.Now()
	limiter.now = func() time.Time { return base }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := limiter.Acquire(ctx, CategoryRead); err != nil {
			t.Fatalf("acquire %d: %v", i+1, err)
		}
	}
	if err := limiter.Acquire(ctx, CategoryRead); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected before refill, got %v", err)
	}

	// За границей окна счётчик восстанавливается до полного capacity.
	base = base.Add(61 * time.Second)
	if got := limiter.Available(CategoryRead); got != 2 {
		t.Fatalf("Available after refill = %d, want 2", got)
	}
	if err := limiter.Acquire(ctx, CategoryRead); err != nil {
		t.Fatalf("acquire after refill: %v", err)
	}
}

func TestAcquire_RefillNeverExceedsCapacity(t *testing.T) {
	limiter := newTestLimiter(t, map[Category]BucketConfig{
		CategoryRead: {Capacity: 3, RefreshPeriod: time.Second, MaxWait: 0},
	})

	base := time.Now()
	limiter.now = func() time.Time { return base }

	// Несколько пропущенных окон подряд не накапливают разрешения.
	base = base.Add(10 * time.Second)
	if got := limiter.Available(CategoryRead); got != 3 {
		t.Fatalf("Available = %d, want capacity 3", got)
	}
}

func TestAcquire_ContextCanceled(t *testing.T) {
	limiter := newTestLimiter(t, map[Category]BucketConfig{
		CategoryWrite: {Capacity: 1, RefreshPeriod: time.Minute, MaxWait: time.Minute},
	})

	ctx := context.Background()
	if err := limiter.Acquire(ctx, CategoryWrite); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if err := limiter.Acquire(cancelCtx, CategoryWrite); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// Декремент должен быть атомарным: при параллельных вызовах количество
// выданных разрешений в одном окне не превышает capacity.
func TestAcquire_ConcurrentNeverOverAdmits(t *testing.T) {
	const capacity = 10
	limiter := newTestLimiter(t, map[Category]BucketConfig{
		CategoryWrite: {Capacity: capacity, RefreshPeriod: time.Minute, MaxWait: 0},
	})

	var granted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(context.Background(), CategoryWrite); err == nil {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	if granted.Load() != capacity {
		t.Fatalf("granted %d permits, want exactly %d", granted.Load(), capacity)
	}
}
