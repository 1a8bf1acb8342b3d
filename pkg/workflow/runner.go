package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentflow/agentflow/pkg/instruction"
	"github.com/agentflow/agentflow/pkg/stores"
	"github.com/agentflow/agentflow/pkg/telemetry"
)

// RunResult summarizes one finished workflow run.
type RunResult struct {
	RunID    string             `json:"workflow_id"`
	Workflow string             `json:"workflow"`
	Status   instruction.Status `json:"status"`
	Data     map[string]any     `json:"data,omitempty"`
	Error    string             `json:"error,omitempty"`
	Duration time.Duration      `json:"duration"`
}

// Runner executes workflow definitions, persisting run records and
// per-instruction events, and wiring telemetry around each run.
type Runner struct {
	store   stores.Store
	builder *Builder
	tel     *telemetry.Telemetry
	logger  zerolog.Logger

	runTimeout time.Duration

	wg sync.WaitGroup
}

// NewRunner creates a runner over the given store and builder.
func NewRunner(store stores.Store, builder *Builder, tel *telemetry.Telemetry, logger zerolog.Logger) *Runner {
	return &Runner{
		store:   store,
		builder: builder,
		tel:     tel,
		logger:  logger.With().Str("component", "workflow_runner").Logger(),
	}
}

// SetRunTimeout sets the default bound on a whole run. A definition's
// execution timeout takes precedence. Zero means no limit.
func (r *Runner) SetRunTimeout(d time.Duration) { r.runTimeout = d }

// Execute runs a workflow synchronously and returns its result.
func (r *Runner) Execute(ctx context.Context, def *Definition, input map[string]any) (*RunResult, error) {
	runID, root, err := r.prepare(ctx, def, input)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, runID, def, root, input), nil
}

// ExecuteAsync validates and registers a run, then executes it in the
// background. The returned run ID can be polled through Status.
func (r *Runner) ExecuteAsync(ctx context.Context, def *Definition, input map[string]any) (string, error) {
	runID, root, err := r.prepare(ctx, def, input)
	if err != nil {
		return "", err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		// The request context ends with the HTTP response; the run
		// carries its own lifetime.
		r.run(context.Background(), runID, def, root, input)
	}()

	return runID, nil
}

// Status returns the persisted record for a run.
func (r *Runner) Status(ctx context.Context, runID string) (*stores.Run, error) {
	return r.store.GetRun(ctx, runID)
}

// Events returns the persisted event stream for a run.
func (r *Runner) Events(ctx context.Context, runID string) ([]*stores.Event, error) {
	return r.store.GetEvents(ctx, runID, "")
}

// Wait blocks until all asynchronous runs have finished.
func (r *Runner) Wait() { r.wg.Wait() }

// prepare validates the definition, materializes the tree, and creates
// the run record.
func (r *Runner) prepare(ctx context.Context, def *Definition, input map[string]any) (string, instruction.Instruction, error) {
	runID := uuid.New().String()

	recorder := &runRecorder{runID: runID, store: r.store, logger: r.logger}
	root, err := r.builder.BuildFor(def, recorder)
	if err != nil {
		return "", nil, err
	}

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode run input: %w", err)
	}

	run := &stores.Run{
		ID:       runID,
		Workflow: def.Name,
		Status:   stores.RunStatusPending,
		Input:    string(inputJSON),
	}
	if err := r.store.CreateRun(ctx, run); err != nil {
		return "", nil, err
	}

	_ = r.store.AppendAudit(ctx, &stores.AuditEntry{
		RunID:  runID,
		Action: "run.submitted",
		Actor:  "runner",
	})

	return runID, root, nil
}

// run executes a prepared tree and records the outcome.
func (r *Runner) run(ctx context.Context, runID string, def *Definition, root instruction.Instruction, input map[string]any) *RunResult {
	timeout := def.Execution.Timeout
	if timeout == 0 {
		timeout = r.runTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if r.tel != nil {
		ctx = r.tel.WithContext(ctx)
	}
	ctx = telemetry.WithRunContext(ctx, runID, def.Name)

	started := time.Now()
	if err := r.store.UpdateRunStatus(ctx, runID, stores.RunStatusRunning, ""); err != nil {
		r.logger.Error().Err(err).Str("run_id", runID).Msg("failed to mark run running")
	}

	result := root.Execute(ctx, instruction.NewContext(input))
	duration := time.Since(started)

	status := stores.RunStatusCompleted
	var runErr error
	if result.Status == instruction.StatusFailed {
		status = stores.RunStatusFailed
		runErr = fmt.Errorf("%s", result.Error)
	}

	outputJSON, err := json.Marshal(result.Data)
	if err != nil {
		r.logger.Error().Err(err).Str("run_id", runID).Msg("failed to encode run output")
		outputJSON = []byte("{}")
	}

	// Persistence outlives a canceled run context.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := r.store.CompleteRun(storeCtx, runID, status, string(outputJSON), result.Error); err != nil {
		r.logger.Error().Err(err).Str("run_id", runID).Msg("failed to complete run record")
	}
	_ = r.store.AppendAudit(storeCtx, &stores.AuditEntry{
		RunID:   runID,
		Action:  "run." + string(status),
		Actor:   "runner",
		Details: fmt.Sprintf(`{"duration_ms":%d}`, duration.Milliseconds()),
	})

	telemetry.EndRunContext(ctx, runID, def.Name, string(result.Status), runErr)

	r.logger.Info().
		Str("run_id", runID).
		Str("workflow", def.Name).
		Str("status", string(status)).
		Dur("duration", duration).
		Msg("workflow run finished")

	return &RunResult{
		RunID:    runID,
		Workflow: def.Name,
		Status:   result.Status,
		Data:     result.Data,
		Error:    result.Error,
		Duration: duration,
	}
}

// runRecorder persists per-instruction events as a run executes.
// It implements instruction.Collector alongside the metrics collector.
type runRecorder struct {
	runID  string
	store  stores.Store
	logger zerolog.Logger
}

func (rr *runRecorder) InstructionStarted(kind, name string) {
	rr.append(&stores.Event{
		RunID:       rr.runID,
		Instruction: name,
		Kind:        kind,
		Level:       stores.EventLevelInfo,
		Message:     "instruction started",
	})
}

func (rr *runRecorder) InstructionFinished(kind, name string, status instruction.Status, duration time.Duration) {
	level := stores.EventLevelInfo
	if status == instruction.StatusFailed {
		level = stores.EventLevelError
	}
	rr.append(&stores.Event{
		RunID:       rr.runID,
		Instruction: name,
		Kind:        kind,
		Level:       level,
		Message:     "instruction " + string(status),
		Data:        fmt.Sprintf(`{"duration_ms":%d}`, duration.Milliseconds()),
	})
}

func (rr *runRecorder) append(event *stores.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rr.store.AppendEvent(ctx, event); err != nil {
		rr.logger.Warn().Err(err).
			Str("run_id", rr.runID).
			Str("instruction", event.Instruction).
			Msg("failed to persist run event")
	}
}
