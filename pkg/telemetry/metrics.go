package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the compiler.
type Metrics struct {
	config MetricsConfig

	// Compile run metrics
	compilesStarted   *prometheus.CounterVec
	compilesCompleted *prometheus.CounterVec
	compileDuration   *prometheus.HistogramVec

	// Scheduler queue metrics (§4.4's three queues)
	queueDepth      *prometheus.GaugeVec
	iterationsTotal *prometheus.CounterVec
	freezesTotal    *prometheus.CounterVec

	// Instance/index metrics
	instancesConstructed *prometheus.CounterVec
	indexCollisions      *prometheus.CounterVec

	// Plugin metrics
	pluginCalls    *prometheus.CounterVec
	pluginDuration *prometheus.HistogramVec
	pluginErrors   *prometheus.CounterVec

	// Diagnostics metrics
	diagnosticsByKind *prometheus.CounterVec

	activeCompiles prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		compilesStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compiles_started_total",
				Help:      "Total number of compiles started",
			},
			[]string{"module"},
		),
		compilesCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compiles_completed_total",
				Help:      "Total number of compiles completed",
			},
			[]string{"status"},
		),
		compileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "compile_duration_seconds",
				Help:      "Duration of a full compile in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scheduler_queue_depth",
				Help:      "Current depth of a scheduler queue (runnable, wait_queue, zero_waiters)",
			},
			[]string{"queue"},
		),
		iterationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_iterations_total",
				Help:      "Total number of main-loop iterations run by the scheduler",
			},
			[]string{"module"},
		),
		freezesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_freezes_total",
				Help:      "Total number of result-variable freezes performed",
			},
			[]string{"source"}, // "wait_queue", "zero_waiters", "terminating"
		),

		instancesConstructed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instances_constructed_total",
				Help:      "Total number of entity instances constructed",
			},
			[]string{"entity"},
		),
		indexCollisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "index_collisions_total",
				Help:      "Total number of index collisions detected",
			},
			[]string{"entity"},
		),

		pluginCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plugin_calls_total",
				Help:      "Total number of plugin invocations",
			},
			[]string{"plugin"},
		),
		pluginDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "plugin_call_duration_seconds",
				Help:      "Duration of plugin invocations in seconds",
				Buckets:   buckets,
			},
			[]string{"plugin"},
		),
		pluginErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plugin_errors_total",
				Help:      "Total number of plugin invocation errors",
			},
			[]string{"plugin"},
		),

		diagnosticsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagnostics_total",
				Help:      "Total number of diagnostics raised, by kind",
			},
			[]string{"kind"},
		),

		activeCompiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_compiles",
				Help:      "Current number of in-flight compiles",
			},
		),
	}

	registry.MustRegister(
		m.compilesStarted,
		m.compilesCompleted,
		m.compileDuration,
		m.queueDepth,
		m.iterationsTotal,
		m.freezesTotal,
		m.instancesConstructed,
		m.indexCollisions,
		m.pluginCalls,
		m.pluginDuration,
		m.pluginErrors,
		m.diagnosticsByKind,
		m.activeCompiles,
	)

	return m, nil
}

// RecordCompileStarted increments the counter for started compiles.
func (m *Metrics) RecordCompileStarted(module string) {
	if m.compilesStarted == nil {
		return
	}
	m.compilesStarted.WithLabelValues(module).Inc()
	m.activeCompiles.Inc()
}

// RecordCompileCompleted records a completed compile with its status and duration.
func (m *Metrics) RecordCompileCompleted(status string, duration time.Duration) {
	if m.compilesCompleted == nil {
		return
	}
	m.compilesCompleted.WithLabelValues(status).Inc()
	m.compileDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.activeCompiles.Dec()
}

// SetQueueDepth records the current size of one of the scheduler's three
// queues, sampled once per main-loop iteration (§4.4 expansion).
func (m *Metrics) SetQueueDepth(queue string, depth int) {
	if m.queueDepth == nil {
		return
	}
	m.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordIteration increments the scheduler's main-loop iteration counter.
func (m *Metrics) RecordIteration(module string) {
	if m.iterationsTotal == nil {
		return
	}
	m.iterationsTotal.WithLabelValues(module).Inc()
}

// RecordFreeze increments the freeze counter for one of the three sources
// named in §4.4 steps 2-4: "wait_queue", "zero_waiters", "terminating".
func (m *Metrics) RecordFreeze(source string) {
	if m.freezesTotal == nil {
		return
	}
	m.freezesTotal.WithLabelValues(source).Inc()
}

// RecordInstanceConstructed records one more instance of entity.
func (m *Metrics) RecordInstanceConstructed(entity string) {
	if m.instancesConstructed == nil {
		return
	}
	m.instancesConstructed.WithLabelValues(entity).Inc()
}

// RecordIndexCollision records one detected index collision on entity.
func (m *Metrics) RecordIndexCollision(entity string) {
	if m.indexCollisions == nil {
		return
	}
	m.indexCollisions.WithLabelValues(entity).Inc()
}

// RecordPluginCall records a plugin invocation with its duration.
func (m *Metrics) RecordPluginCall(plugin string, duration time.Duration) {
	if m.pluginCalls == nil {
		return
	}
	m.pluginCalls.WithLabelValues(plugin).Inc()
	m.pluginDuration.WithLabelValues(plugin).Observe(duration.Seconds())
}

// RecordPluginError records a plugin invocation error.
func (m *Metrics) RecordPluginError(plugin string) {
	if m.pluginErrors == nil {
		return
	}
	m.pluginErrors.WithLabelValues(plugin).Inc()
}

// RecordDiagnostic records one diagnostic of the given kind.
func (m *Metrics) RecordDiagnostic(kind string) {
	if m.diagnosticsByKind == nil {
		return
	}
	m.diagnosticsByKind.WithLabelValues(kind).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
