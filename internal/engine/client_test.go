package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.temporal.io/api/serviceerror"

	"github.com/muturi/chatbridge/internal/observability"
)

func TestRecordEngineCall_outcomes(t *testing.T) {
	m := observability.InitMetrics(prometheus.NewRegistry())
	start := time.Now()

	recordEngineCall(m, "query", start, nil)
	recordEngineCall(m, "query", start, &serviceerror.NotFound{Message: "unknown workflow"})
	recordEngineCall(m, "query", start, fmt.Errorf("connection refused"))
	recordEngineCall(m, "signal", start, nil)

	tests := []struct {
		operation string
		outcome   string
		want      float64
	}{
		{"query", "ok", 1},
		{"query", "not_found", 1},
		{"query", "error", 1},
		{"signal", "ok", 1},
		{"signal", "error", 0},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(m.EngineCallsTotal.WithLabelValues(tt.operation, tt.outcome))
		if got != tt.want {
			t.Errorf("engine_calls_total{%s,%s} = %v, want %v", tt.operation, tt.outcome, got, tt.want)
		}
	}

	// One duration series per operation, regardless of outcome.
	if got := testutil.CollectAndCount(m.EngineCallDuration); got != 2 {
		t.Errorf("engine_call_duration series = %d, want 2", got)
	}
}

func TestRecordEngineCall_nilMetrics(t *testing.T) {
	// Clients built without instruments must stay silent, not panic.
	recordEngineCall(nil, "describe", time.Now(), nil)
	recordEngineCall(nil, "describe", time.Now(), fmt.Errorf("boom"))
}
