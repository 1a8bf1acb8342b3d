package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentflow/agentflow/pkg/instruction"
)

// Metrics provides Prometheus metrics for AgentFlow. It implements
// instruction.Collector so it can be attached directly to instructions.
type Metrics struct {
	config MetricsConfig

	// Run metrics
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	// Instruction metrics
	instructionsStarted  *prometheus.CounterVec
	instructionsFinished *prometheus.CounterVec
	instructionDuration  *prometheus.HistogramVec

	// Validation metrics
	validationFailures *prometheus.CounterVec

	// Adaptation metrics
	adaptationsApplied *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec

	// System metrics
	activeRuns         prometheus.Gauge
	activeInstructions prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
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

		runsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of workflow runs started",
			},
			[]string{"workflow"},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of workflow runs completed",
			},
			[]string{"workflow", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of workflow run execution in seconds",
				Buckets:   buckets,
			},
			[]string{"workflow", "status"},
		),

		instructionsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instructions_started_total",
				Help:      "Total number of instruction executions started",
			},
			[]string{"kind"},
		),
		instructionsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instructions_finished_total",
				Help:      "Total number of instruction executions finished",
			},
			[]string{"kind", "status"},
		),
		instructionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "instruction_duration_seconds",
				Help:      "Duration of instruction execution in seconds",
				Buckets:   buckets,
			},
			[]string{"kind", "status"},
		),

		validationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Total number of instruction validation failures",
			},
			[]string{"instruction"},
		),

		adaptationsApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "adaptations_applied_total",
				Help:      "Total number of adaptation mutations applied",
			},
			[]string{"instruction"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),

		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_runs",
				Help:      "Current number of active workflow runs",
			},
		),
		activeInstructions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_instructions",
				Help:      "Current number of executing instructions",
			},
		),
	}

	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.instructionsStarted,
		m.instructionsFinished,
		m.instructionDuration,
		m.validationFailures,
		m.adaptationsApplied,
		m.errorsByClass,
		m.activeRuns,
		m.activeInstructions,
	)

	return m, nil
}

// Run Metrics

// RecordRunStarted increments the counter for started runs.
func (m *Metrics) RecordRunStarted(workflow string) {
	if m.runsStarted == nil {
		return
	}
	m.runsStarted.WithLabelValues(workflow).Inc()
	m.activeRuns.Inc()
}

// RecordRunCompleted records a completed run with its status and duration.
func (m *Metrics) RecordRunCompleted(workflow, status string, duration time.Duration) {
	if m.runsCompleted == nil {
		return
	}
	m.runsCompleted.WithLabelValues(workflow, status).Inc()
	m.runDuration.WithLabelValues(workflow, status).Observe(duration.Seconds())
	m.activeRuns.Dec()
}

// Instruction Metrics

// InstructionStarted implements instruction.Collector.
func (m *Metrics) InstructionStarted(kind, name string) {
	if m.instructionsStarted == nil {
		return
	}
	m.instructionsStarted.WithLabelValues(kind).Inc()
	m.activeInstructions.Inc()
}

// InstructionFinished implements instruction.Collector.
func (m *Metrics) InstructionFinished(kind, name string, status instruction.Status, duration time.Duration) {
	if m.instructionsFinished == nil {
		return
	}
	m.instructionsFinished.WithLabelValues(kind, string(status)).Inc()
	m.instructionDuration.WithLabelValues(kind, string(status)).Observe(duration.Seconds())
	m.activeInstructions.Dec()
}

// Validation Metrics

// RecordValidationFailure records a failed validation for an instruction.
func (m *Metrics) RecordValidationFailure(name string) {
	if m.validationFailures == nil {
		return
	}
	m.validationFailures.WithLabelValues(name).Inc()
}

// Adaptation Metrics

// RecordAdaptationApplied records an adaptation mutation applied by an
// adaptive instruction.
func (m *Metrics) RecordAdaptationApplied(name string) {
	if m.adaptationsApplied == nil {
		return
	}
	m.adaptationsApplied.WithLabelValues(name).Inc()
}

// Error Metrics

// RecordError records an error by class.
func (m *Metrics) RecordError(errorClass string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
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
