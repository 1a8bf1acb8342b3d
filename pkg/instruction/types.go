package instruction

import (
	"time"
)

// Result represents the outcome of a single Execute call.
// Exactly one of Data and Error is populated, depending on Status.
type Result struct {
	// Status is the terminal status reached by the execution.
	Status Status `json:"status"`

	// Data is the output mapping produced by the instruction body.
	// Populated only when Status is StatusCompleted.
	Data map[string]any `json:"data,omitempty"`

	// Error is a human-readable failure description.
	// Populated only when Status is StatusFailed.
	Error string `json:"error,omitempty"`

	// Metrics contains execution metrics for this call, if collected.
	Metrics *Metrics `json:"metrics,omitempty"`
}

// Completed constructs a successful result carrying the given data.
func Completed(data map[string]any) *Result {
	if data == nil {
		data = make(map[string]any)
	}
	return &Result{Status: StatusCompleted, Data: data}
}

// Failed constructs a failed result carrying the given error message.
func Failed(errMsg string) *Result {
	return &Result{Status: StatusFailed, Error: errMsg}
}

// ValidationResult represents the outcome of a validation pass.
type ValidationResult struct {
	// Valid indicates whether the context passed all validation rules.
	Valid bool `json:"valid"`

	// Score is a confidence/quality signal in [0, 1].
	Score float64 `json:"score"`

	// Metrics contains diagnostic values from the validation pass.
	Metrics map[string]float64 `json:"metrics,omitempty"`

	// Violations lists human-readable rule failures, in rule order.
	// Valid is false whenever Violations is non-empty.
	Violations []string `json:"violations,omitempty"`
}

// Metrics contains timing and resource accounting for one Execute call.
// Purely observational; it never affects control flow.
type Metrics struct {
	// StartedAt is when the execution started.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the execution reached a terminal status.
	CompletedAt time.Time `json:"completed_at"`

	// Duration is the total execution time.
	Duration time.Duration `json:"duration"`

	// ChildrenRun is the number of child instructions invoked, for combinators.
	ChildrenRun int `json:"children_run,omitempty"`

	// Iterations is the number of iterations performed, for iterative instructions.
	Iterations int `json:"iterations,omitempty"`
}

func startMetrics() *Metrics {
	return &Metrics{StartedAt: time.Now()}
}

func (m *Metrics) finish() *Metrics {
	m.CompletedAt = time.Now()
	m.Duration = m.CompletedAt.Sub(m.StartedAt)
	return m
}
