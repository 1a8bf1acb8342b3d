// Package telemetry provides observability instrumentation for AgentFlow.
//
// The telemetry package integrates structured logging (zerolog), distributed
// tracing (OpenTelemetry), metrics (Prometheus), and event publishing into a
// unified system for monitoring and debugging workflow execution.
//
// # Architecture
//
// The telemetry system is built on four pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with multiple exporters
//  3. Metrics Collection - Prometheus metrics for operational insights
//  4. Event Publishing - Async event system for audit and notifications
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "agentflow"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	if err := tel.StartMetricsServer(); err != nil {
//	    log.Fatal(err)
//	}
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context
// propagation:
//
//	logger := tel.Logger.NewComponentLogger("workflow")
//	logger = logger.WithRunID("run-123").WithInstruction("composite", "pipeline")
//	logger.Info("Starting workflow run")
//	logger.WithError(err).Error("Run failed")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Metrics and the Collector Interface
//
// Metrics implements instruction.Collector, so it can be attached to any
// instruction to record execution counts and latencies:
//
//	root.SetCollector(tel.Metrics)
//
//	tel.Metrics.RecordRunStarted("research-pipeline")
//	tel.Metrics.RecordRunCompleted("research-pipeline", "completed", duration)
//
// Metrics are exposed via HTTP at /metrics (default: :9090/metrics)
//
// # Distributed Tracing
//
// Tracing provides visibility into run flow and performance:
//
//	ctx, span := tel.Tracer.StartRunSpan(ctx, runID, "research-pipeline")
//	defer span.End()
//
//	if err != nil {
//	    telemetry.RecordError(span, err)
//	}
//
// Supported exporters: OTLP (production), Stdout (development)
//
// # Event Publishing
//
// The event system provides async publishing with buffering and filtering:
//
//	tel.Events.PublishRunStarted(runID, workflow)
//	tel.Events.PublishInstructionFailed(runID, name, reason)
//
//	tel.Events.Subscribe(func(event telemetry.Event) {
//	    fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
//	}, telemetry.FilterByLevel("warning"))
//
// Event filters: FilterByLevel, FilterByType, FilterByRunID
//
// # Context Helpers
//
// High-level helpers simplify common instrumentation patterns:
//
//	ctx = telemetry.WithRunContext(ctx, runID, workflow)
//	defer telemetry.EndRunContext(ctx, runID, workflow, status, err)
//
//	err := telemetry.RecordInstructionOperation(ctx, "composite", "pipeline",
//	    func(ctx context.Context) error {
//	        res := root.Execute(ctx, ec)
//	        ...
//	    })
//
// # Graceful Shutdown
//
// Always shut down telemetry gracefully to flush pending data:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	if err := tel.Shutdown(ctx); err != nil {
//	    log.Printf("Telemetry shutdown error: %v", err)
//	}
//
// # Common Metrics
//
// Key metrics exposed:
//
//   - agentflow_runs_started_total{workflow}
//   - agentflow_runs_completed_total{workflow,status}
//   - agentflow_run_duration_seconds{workflow,status}
//   - agentflow_instructions_started_total{kind}
//   - agentflow_instructions_finished_total{kind,status}
//   - agentflow_instruction_duration_seconds{kind,status}
//   - agentflow_validation_failures_total{instruction}
//   - agentflow_adaptations_applied_total{instruction}
//   - agentflow_errors_by_class_total{class}
//   - agentflow_active_runs
//   - agentflow_active_instructions
package telemetry
