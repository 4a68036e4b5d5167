package main

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/waiter/internal/app"
)

func TestReadConfig_Defaults(t *testing.T) {
	cfg := readConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %s, want :8080", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %s, want :9090", cfg.MetricsAddr)
	}
	if cfg.DiscountPct != 95 {
		t.Errorf("DiscountPct = %d, want 95", cfg.DiscountPct)
	}
	if cfg.ReadBucket.Capacity <= cfg.WriteBucket.Capacity {
		t.Error("read bucket should be more lenient than write bucket")
	}
}

func TestReadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("WAITER_HTTP_ADDR", ":18080")
	t.Setenv("WAITER_DISCOUNT_PCT", "90")
	t.Setenv("WAITER_WRITE_CAPACITY", "3")
	t.Setenv("WAITER_WRITE_REFRESH_PERIOD", "30s")
	t.Setenv("WAITER_WRITE_MAX_WAIT", "1s")

	cfg := readConfig()

	if cfg.HTTPAddr != ":18080" {
		t.Errorf("HTTPAddr = %s, want :18080", cfg.HTTPAddr)
	}
	if cfg.DiscountPct != 90 {
		t.Errorf("DiscountPct = %d, want 90", cfg.DiscountPct)
	}
	if cfg.WriteBucket.Capacity != 3 {
		t.Errorf("WriteBucket.Capacity = %d, want 3", cfg.WriteBucket.Capacity)
	}
	if cfg.WriteBucket.RefreshPeriod != 30*time.Second {
		t.Errorf("WriteBucket.RefreshPeriod = %s, want 30s", cfg.WriteBucket.RefreshPeriod)
	}
	if cfg.WriteBucket.MaxWait != time.Second {
		t.Errorf("WriteBucket.MaxWait = %s, want 1s", cfg.WriteBucket.MaxWait)
	}
}

func TestReadConfig_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("WAITER_DISCOUNT_PCT", "not-a-number")
	t.Setenv("WAITER_WRITE_CAPACITY", "-5")
	t.Setenv("WAITER_WRITE_REFRESH_PERIOD", "soon")

	cfg := readConfig()
	defaults := app.DefaultConfig()

	if cfg.DiscountPct != defaults.DiscountPct {
		t.Errorf("invalid discount should keep default, got %d", cfg.DiscountPct)
	}
	if cfg.WriteBucket.Capacity != defaults.WriteBucket.Capacity {
		t.Errorf("invalid capacity should keep default, got %d", cfg.WriteBucket.Capacity)
	}
	if cfg.WriteBucket.RefreshPeriod != defaults.WriteBucket.RefreshPeriod {
		t.Errorf("invalid period should keep default, got %s", cfg.WriteBucket.RefreshPeriod)
	}
}
