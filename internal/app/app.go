package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/waiter/internal/admission"
	"github.com/vladislavdragonenkov/waiter/internal/api/rest"
	"github.com/vladislavdragonenkov/waiter/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/waiter/internal/health"
	"github.com/vladislavdragonenkov/waiter/internal/metrics"
	"github.com/vladislavdragonenkov/waiter/internal/service/completion"
	"github.com/vladislavdragonenkov/waiter/internal/service/order"
	"github.com/vladislavdragonenkov/waiter/internal/storage/memory"
	"github.com/vladislavdragonenkov/waiter/internal/storage/postgres"
	"github.com/vladislavdragonenkov/waiter/internal/version"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	// PostgresDSN пустой — значит работаем на in-memory хранилище.
	PostgresDSN string

	// KafkaBrokers — список брокеров через запятую; пустой — без Kafka.
	KafkaBrokers string
	KafkaGroupID string

	WaiterPrefix string
	DiscountPct  int64
	Currency     string

	// Admission control: независимые buckets для чтения и записи.
	ReadBucket  admission.BucketConfig
	WriteBucket admission.BucketConfig
}

// DefaultConfig возвращает базовые настройки сервиса.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:     ":8080",
		MetricsAddr:  ":9090",
		KafkaGroupID: "waiter-service",
		WaiterPrefix: "springbucks-",
		DiscountPct:  95,
		Currency:     "TWD",
		ReadBucket: admission.BucketConfig{
			Capacity:      100,
			RefreshPeriod: time.Second,
			MaxWait:       500 * time.Millisecond,
		},
		WriteBucket: admission.BucketConfig{
			Capacity:      20,
			RefreshPeriod: time.Second,
			MaxWait:       200 * time.Millisecond,
		},
	}
}

// droppingPublisher используется, когда Kafka не сконфигурирован:
// уведомления теряются, но жизненный цикл заказа продолжает работать.
type droppingPublisher struct {
	logger *log.Entry
}

func (p *droppingPublisher) Publish(topic string, orderID string) error {
	p.logger.WithFields(log.Fields{
		"topic":    topic,
		"order_id": orderID,
	}).Warn("kafka is not configured, dropping order notification")
	return nil
}

// Run собирает зависимости и держит сервис до отмены контекста.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	waiterMetrics := metrics.NewWaiterMetrics()

	healthHandler := healthcheck.NewHandler(version.String())

	// Хранилище заказов: PostgreSQL при наличии DSN, иначе in-memory.
	var repo domain.OrderRepository
	if cfg.PostgresDSN != "" {
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		repo = postgres.NewOrderRepository(store)
		healthHandler.Register("storage", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(pingCtx)
		})
		logger.Info("postgres order repository initialized")
	} else {
		repo = memory.NewOrderRepository()
		logger.Info("in-memory order repository initialized")
	}

	limiter, err := admission.NewLimiter(map[admission.Category]admission.BucketConfig{
		admission.CategoryRead:  cfg.ReadBucket,
		admission.CategoryWrite: cfg.WriteBucket,
	}, waiterMetrics, logger.WithField("component", "admission"))
	if err != nil {
		return err
	}

	producer, publisher := initEventPublisher(cfg.KafkaBrokers, logger)
	if publisher == nil {
		publisher = &droppingPublisher{logger: logger}
	}
	defer closeKafkaProducer(producer, logger)

	svc := order.NewService(repo, publisher, limiter, nil, waiterMetrics, order.Config{
		WaiterPrefix: cfg.WaiterPrefix,
		DiscountPct:  cfg.DiscountPct,
		Currency:     cfg.Currency,
	}, logger.WithField("component", "order-service"))
	logger.WithField("waiter_id", svc.WaiterID()).Info("order service initialized")

	// Consumer уведомлений о готовых заказах.
	listener := completion.NewListener(waiterMetrics, logger.WithField("component", "completion-listener"))
	consumer, err := initFinishedOrdersConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, listener.Handle, producer, logger)
	if err != nil {
		logger.WithError(err).Warn("failed to create finished-orders consumer, continuing without it")
	}
	if consumer != nil {
		if err := consumer.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := consumer.Stop(); err != nil {
				logger.WithError(err).Warn("failed to stop finished-orders consumer")
			}
		}()
	}

	apiSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: rest.NewRouter(svc, logger.WithField("component", "rest")),
	}
	metricsSrv := newMetricsServer(cfg.MetricsAddr, healthHandler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("REST API слушает %s", cfg.HTTPAddr)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("метрики доступны по адресу %s/metrics", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("получен сигнал остановки, останавливаем HTTP-серверы")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return gctx.Err()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

// newMetricsServer настраивает HTTP-обработчики /metrics и health checks.
func newMetricsServer(addr string, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	return &http.Server{Addr: addr, Handler: mux}
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http server shutdown with error")
	}
}
