package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(handler http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHandler_AllProbesHealthy(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.Register("storage", func() error { return nil })

	w := serve(handler)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", w.Code)
	}

	var report Report
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Status != StatusHealthy {
		t.Errorf("status = %s, want healthy", report.Status)
	}
	if report.Version != "v1.0.0" {
		t.Errorf("version = %s, want v1.0.0", report.Version)
	}
	if len(report.Checks) != 1 {
		t.Errorf("checks = %d, want 1", len(report.Checks))
	}
}

func TestHandler_FailingProbeGives503(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.Register("storage", func() error { return nil })
	handler.Register("kafka", func() error { return errors.New("broker unavailable") })

	w := serve(handler)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, want 503", w.Code)
	}

	var report Report
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Status != StatusUnhealthy {
		t.Errorf("status = %s, want unhealthy", report.Status)
	}
	if report.Checks["kafka"].Error != "broker unavailable" {
		t.Errorf("kafka error = %q", report.Checks["kafka"].Error)
	}
	if report.Checks["storage"].Status != StatusHealthy {
		t.Errorf("storage status = %s, want healthy", report.Checks["storage"].Status)
	}
}

func TestHandler_NoProbes(t *testing.T) {
	w := serve(NewHandler("dev"))
	if w.Code != http.StatusOK {
		t.Errorf("code = %d, want 200 without probes", w.Code)
	}
}

func TestLivenessHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	w := httptest.NewRecorder()

	LivenessHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("code = %d, want 200", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", w.Body.String())
	}
}
