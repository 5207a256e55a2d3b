package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Build-time variables injected via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// HealthResponse is the JSON response for the liveness endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// ReadinessResponse is the JSON response for the readiness endpoint.
type ReadinessResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// CheckResult is the result of a single readiness check.
type CheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthChecker can verify its own health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ReadinessChecks holds the dependency checkers for the readiness endpoint.
// Only non-nil checks run.
type ReadinessChecks struct {
	Engine     HealthChecker
	Classifier HealthChecker
}

const checkTimeout = 2 * time.Second

// HandleHealth returns an HTTP handler for the liveness endpoint.
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(HealthResponse{
			Status:  "ok",
			Version: Version,
			Commit:  Commit,
		})
	}
}

// HandleReady returns an HTTP handler for the readiness endpoint. All
// configured checks run concurrently under a shared timeout; any failure
// flips the response to 503.
func HandleReady(checks ReadinessChecks) http.HandlerFunc {
	named := func() map[string]HealthChecker {
		m := make(map[string]HealthChecker)
		if checks.Engine != nil {
			m["engine"] = checks.Engine
		}
		if checks.Classifier != nil {
			m["classifier"] = checks.Classifier
		}
		return m
	}()

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		results := make(map[string]CheckResult, len(named))
		var mu sync.Mutex
		var wg sync.WaitGroup

		for name, checker := range named {
			wg.Add(1)
			go func(name string, checker HealthChecker) {
				defer wg.Done()
				start := time.Now()
				res := CheckResult{Status: "ok"}
				if err := checker.HealthCheck(ctx); err != nil {
					res.Status = "error"
					res.Error = err.Error()
				}
				res.LatencyMs = time.Since(start).Milliseconds()
				mu.Lock()
				results[name] = res
				mu.Unlock()
			}(name, checker)
		}
		wg.Wait()

		status := "ready"
		code := http.StatusOK
		for _, res := range results {
			if res.Status != "ok" {
				status = "not_ready"
				code = http.StatusServiceUnavailable
				break
			}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(ReadinessResponse{Status: status, Checks: results})
	}
}
