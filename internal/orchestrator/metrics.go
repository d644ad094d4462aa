package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for orchestration runs.
//
// Metrics:
//   - concierge_runs_total{outcome} - runs by outcome ("success" or "failure")
//   - concierge_tool_calls_total{tool,status} - dispatched tool calls
//   - concierge_dropped_steps_total - planned steps dropped before dispatch
//   - concierge_batch_size - tool calls per iteration
//   - concierge_synthesis_fallbacks_total - runs answered with fallback text
//   - concierge_run_duration_seconds - wall time per run
type Metrics struct {
	RunsTotal               *prometheus.CounterVec
	ToolCallsTotal          *prometheus.CounterVec
	DroppedStepsTotal       prometheus.Counter
	BatchSize               prometheus.Histogram
	SynthesisFallbacksTotal prometheus.Counter
	RunDuration             prometheus.Histogram
}

// NewMetrics creates the metrics and registers them with reg. A nil
// registerer creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_runs_total",
				Help: "Total number of orchestration runs",
			},
			[]string{"outcome"},
		),
		ToolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_tool_calls_total",
				Help: "Total number of dispatched tool calls",
			},
			[]string{"tool", "status"},
		),
		DroppedStepsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "concierge_dropped_steps_total",
				Help: "Total number of planned steps dropped because their tool is unavailable",
			},
		),
		BatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "concierge_batch_size",
				Help:    "Number of tool calls dispatched per iteration",
				Buckets: prometheus.LinearBuckets(1, 1, 8),
			},
		),
		SynthesisFallbacksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "concierge_synthesis_fallbacks_total",
				Help: "Total number of runs answered with fallback text",
			},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "concierge_run_duration_seconds",
				Help:    "Duration of orchestration runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
	}
}

func (m *Metrics) observeToolCall(exec ToolExecution) {
	status := "failure"
	if exec.Succeeded() {
		status = "success"
	}
	m.ToolCallsTotal.WithLabelValues(exec.Tool, status).Inc()
}
