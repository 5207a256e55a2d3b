package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleHealth()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" || body.Version == "" {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleReady(t *testing.T) {
	ok := checkerFunc(func(context.Context) error { return nil })
	failing := checkerFunc(func(context.Context) error { return errors.New("dial refused") })

	tests := []struct {
		name       string
		checks     ReadinessChecks
		wantStatus int
		wantReady  string
	}{
		{"no checks", ReadinessChecks{}, http.StatusOK, "ready"},
		{"all healthy", ReadinessChecks{Engine: ok, Classifier: ok}, http.StatusOK, "ready"},
		{"engine down", ReadinessChecks{Engine: failing, Classifier: ok}, http.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleReady(tt.checks)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body ReadinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Status != tt.wantReady {
				t.Errorf("status field = %q, want %q", body.Status, tt.wantReady)
			}
		})
	}
}

func TestHandleReady_reportsFailingCheck(t *testing.T) {
	checks := ReadinessChecks{
		Engine: checkerFunc(func(context.Context) error { return errors.New("dial refused") }),
	}

	rec := httptest.NewRecorder()
	HandleReady(checks)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var body ReadinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	engine, ok := body.Checks["engine"]
	if !ok {
		t.Fatalf("checks = %v, want engine entry", body.Checks)
	}
	if engine.Status != "error" || engine.Error != "dial refused" {
		t.Errorf("engine check = %+v", engine)
	}
}
