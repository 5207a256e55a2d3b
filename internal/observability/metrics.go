package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets   = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	engineDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
)

// Metrics holds all Prometheus metric instruments for the bridge.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Engine call metrics
	EngineCallsTotal   *prometheus.CounterVec
	EngineCallDuration *prometheus.HistogramVec

	// Extraction metrics
	ExtractionsTotal *prometheus.CounterVec

	// Dispatch metrics
	WorkflowTriggersTotal *prometheus.CounterVec

	// Progress metrics
	ProgressPollsTotal *prometheus.CounterVec

	// Session metrics
	SessionSignalsTotal    *prometheus.CounterVec
	SessionOutboxDepth     prometheus.Gauge
	SessionOutboxDrops     prometheus.Counter
	RateLimitRejections    prometheus.Counter
	RateLimitFallbackReads prometheus.Counter
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatbridge_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chatbridge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),

		EngineCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatbridge_engine_calls_total",
			Help: "Engine operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		EngineCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chatbridge_engine_call_duration_seconds",
			Help:    "Engine operation duration in seconds.",
			Buckets: engineDurationBuckets,
		}, []string{"operation"}),

		ExtractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatbridge_extractions_total",
			Help: "Event extraction attempts by outcome (event, non_event, error).",
		}, []string{"outcome"}),

		WorkflowTriggersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatbridge_workflow_triggers_total",
			Help: "Workflows dispatched by type.",
		}, []string{"workflow_type"}),

		ProgressPollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatbridge_progress_polls_total",
			Help: "Progress queries by reported status.",
		}, []string{"status"}),

		SessionSignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatbridge_session_signals_total",
			Help: "Session signals by name and outcome.",
		}, []string{"signal", "outcome"}),
		SessionOutboxDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatbridge_session_outbox_depth",
			Help: "Signals currently queued in the session outbox.",
		}),
		SessionOutboxDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatbridge_session_outbox_drops_total",
			Help: "Session signals dropped due to outbox overflow.",
		}),
		RateLimitRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatbridge_rate_limit_rejections_total",
			Help: "Requests rejected by the guest rate limit.",
		}),
		RateLimitFallbackReads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatbridge_rate_limit_fallback_reads_total",
			Help: "Rate-limit checks served by the ephemeral fallback counter.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.EngineCallsTotal,
		m.EngineCallDuration,
		m.ExtractionsTotal,
		m.WorkflowTriggersTotal,
		m.ProgressPollsTotal,
		m.SessionSignalsTotal,
		m.SessionOutboxDepth,
		m.SessionOutboxDrops,
		m.RateLimitRejections,
		m.RateLimitFallbackReads,
	)
	return m
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
