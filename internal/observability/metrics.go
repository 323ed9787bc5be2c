package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	askTotal    *prometheus.CounterVec
	askDuration *prometheus.HistogramVec

	bindingCreatedTotal *prometheus.CounterVec
	bindingClosedTotal  prometheus.Counter
	activeBindings      prometheus.Gauge

	providerCallTotal    *prometheus.CounterVec
	providerCallDuration *prometheus.HistogramVec

	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			askTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "unsure_ask_total",
					Help: "Total ask calls by model and outcome.",
				},
				[]string{"model", "outcome"},
			),
			askDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "unsure_ask_duration_seconds",
					Help:    "Ask duration in seconds by model.",
					Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
				},
				[]string{"model"},
			),
			bindingCreatedTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "unsure_binding_created_total",
					Help: "Total agent bindings created by model.",
				},
				[]string{"model"},
			),
			bindingClosedTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "unsure_binding_closed_total",
					Help: "Total agent bindings released.",
				},
			),
			activeBindings: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "unsure_active_bindings",
					Help: "Current number of live agent bindings.",
				},
			),
			providerCallTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "unsure_provider_calls_total",
					Help: "Total provider API calls by provider and status.",
				},
				[]string{"provider", "status"},
			),
			providerCallDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "unsure_provider_call_duration_seconds",
					Help:    "Provider API call duration in seconds by provider.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "unsure_tool_execution_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "unsure_tool_execution_duration_seconds",
					Help:    "Tool execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
		}

		prometheus.MustRegister(
			m.askTotal,
			m.askDuration,
			m.bindingCreatedTotal,
			m.bindingClosedTotal,
			m.activeBindings,
			m.providerCallTotal,
			m.providerCallDuration,
			m.toolExecutionTotal,
			m.toolExecutionDuration,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordAsk(model, outcome string, duration time.Duration) {
	m := getMetrics()
	m.askTotal.WithLabelValues(model, outcome).Inc()
	m.askDuration.WithLabelValues(model).Observe(duration.Seconds())
}

func RecordBindingCreated(model string) {
	m := getMetrics()
	m.bindingCreatedTotal.WithLabelValues(model).Inc()
	m.activeBindings.Inc()
}

func RecordBindingClosed() {
	m := getMetrics()
	m.bindingClosedTotal.Inc()
	m.activeBindings.Dec()
}

func RecordProviderCall(provider string, duration time.Duration, success bool) {
	m := getMetrics()
	m.providerCallTotal.WithLabelValues(provider, status(success)).Inc()
	m.providerCallDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func RecordToolExecution(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	m.toolExecutionTotal.WithLabelValues(tool, status(success)).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
