package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/waiter/internal/admission"
	"github.com/vladislavdragonenkov/waiter/internal/app"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfig формирует конфигурацию приложения, позволяя переопределить
// настройки через переменные окружения.
func readConfig() app.Config {
	cfg := app.DefaultConfig()
	if v := os.Getenv("WAITER_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("WAITER_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("WAITER_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = v
	}
	if v := os.Getenv("KAFKA_GROUP_ID"); v != "" {
		cfg.KafkaGroupID = v
	}
	if v := os.Getenv("WAITER_PREFIX"); v != "" {
		cfg.WaiterPrefix = v
	}
	if v := os.Getenv("WAITER_DISCOUNT_PCT"); v != "" {
		if pct, err := strconv.ParseInt(v, 10, 64); err == nil && pct > 0 {
			cfg.DiscountPct = pct
		}
	}
	if v := os.Getenv("WAITER_CURRENCY"); v != "" {
		cfg.Currency = v
	}

	overrideBucket("WAITER_READ", &cfg.ReadBucket)
	overrideBucket("WAITER_WRITE", &cfg.WriteBucket)
	return cfg
}

// overrideBucket переопределяет настройки admission bucket'а из окружения:
// <prefix>_CAPACITY, <prefix>_REFRESH_PERIOD, <prefix>_MAX_WAIT.
func overrideBucket(prefix string, bucket *admission.BucketConfig) {
	if v := os.Getenv(prefix + "_CAPACITY"); v != "" {
		if capacity, err := strconv.Atoi(v); err == nil && capacity > 0 {
			bucket.Capacity = capacity
		}
	}
	if v := os.Getenv(prefix + "_REFRESH_PERIOD"); v != "" {
		if period, err := time.ParseDuration(v); err == nil && period > 0 {
			bucket.RefreshPeriod = period
		}
	}
	if v := os.Getenv(prefix + "_MAX_WAIT"); v != "" {
		if wait, err := time.ParseDuration(v); err == nil && wait >= 0 {
			bucket.MaxWait = wait
		}
	}
}

func main() {
	setupLogger()
	cfg := readConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
	}).Info("запускаем waiter service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("waiter service остановлен")
}
