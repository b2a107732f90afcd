package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the orchestration engine.
type Metrics struct {
	config MetricsConfig

	// Run metrics
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	// Procedure metrics
	proceduresExecuted *prometheus.CounterVec
	procedureDuration  *prometheus.HistogramVec

	// Error metrics
	errorsByKind *prometheus.CounterVec

	// System metrics
	inFlightProcedures prometheus.Gauge
	bytesImported      prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector with the given configuration. When
// metrics are disabled a no-op instance is returned.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of orchestration runs started",
			},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of orchestration runs completed",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of orchestration runs in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		proceduresExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "procedures_executed_total",
				Help:      "Total number of procedures executed",
			},
			[]string{"action", "status"},
		),
		procedureDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "procedure_duration_seconds",
				Help:      "Duration of procedure execution in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors by classification",
			},
			[]string{"kind"},
		),
		inFlightProcedures: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "in_flight_procedures",
				Help:      "Current number of procedures executing",
			},
		),
		bytesImported: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_bytes_imported_total",
				Help:      "Total size of imported images in bytes",
			},
		),
	}

	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.proceduresExecuted,
		m.procedureDuration,
		m.errorsByKind,
		m.inFlightProcedures,
		m.bytesImported,
	)

	return m, nil
}

// RunStarted records the start of an orchestration run.
func (m *Metrics) RunStarted() {
	if m.registry == nil {
		return
	}
	m.runsStarted.Inc()
}

// RunCompleted records a finished run with its terminal status and duration.
func (m *Metrics) RunCompleted(status string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.runsCompleted.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// ProcedureStarted marks one more procedure in flight.
func (m *Metrics) ProcedureStarted() {
	if m.registry == nil {
		return
	}
	m.inFlightProcedures.Inc()
}

// ProcedureCompleted records one procedure outcome.
func (m *Metrics) ProcedureCompleted(action, status string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.inFlightProcedures.Dec()
	m.proceduresExecuted.WithLabelValues(action, status).Inc()
	m.procedureDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// ErrorObserved records a classified error.
func (m *Metrics) ErrorObserved(kind string) {
	if m.registry == nil {
		return
	}
	m.errorsByKind.WithLabelValues(kind).Inc()
}

// BytesImported adds to the imported image size counter.
func (m *Metrics) BytesImported(n int64) {
	if m.registry == nil || n <= 0 {
		return
	}
	m.bytesImported.Add(float64(n))
}

// Handler returns an HTTP handler exposing the registry, or nil when metrics
// are disabled.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes the metrics endpoint on the configured listen address. It
// blocks; callers run it in a goroutine. A no-op when metrics are disabled
// or no address is configured.
func (m *Metrics) Serve() error {
	if m.registry == nil || m.config.ListenAddress == "" {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	return http.ListenAndServe(m.config.ListenAddress, mux)
}
