package stores

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned when no run exists for the requested ID.
// Callers match it with errors.Is.
var ErrRunNotFound = errors.New("run not found")

// RunStatus represents the lifecycle state of a workflow run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCanceled  RunStatus = "canceled"
)

// EventLevel represents the severity of a run event.
type EventLevel string

const (
	EventLevelDebug EventLevel = "debug"
	EventLevelInfo  EventLevel = "info"
	EventLevelWarn  EventLevel = "warn"
	EventLevelError EventLevel = "error"
)

// Run represents a single execution of a workflow.
type Run struct {
	ID          string
	Workflow    string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       *string
	Input       string // JSON-encoded initial context values
	Output      string // JSON-encoded final context values
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Event represents a timestamped record emitted during a run, typically
// one per instruction transition.
type Event struct {
	ID          int64
	RunID       string
	Instruction string
	Kind        string
	Level       EventLevel
	Message     string
	Data        string // JSON-encoded structured payload
	CreatedAt   time.Time
}

// RunFilter narrows ListRuns results. Zero-valued fields match everything.
type RunFilter struct {
	Workflow string
	Status   RunStatus
	Limit    int
}

// AuditEntry represents an audit log record for operator-facing actions
// such as run submission, cancellation, and policy reloads.
type AuditEntry struct {
	ID        int64
	RunID     string
	Action    string
	Actor     string
	Details   string // JSON-encoded
	CreatedAt time.Time
}

// Store is the persistence interface for workflow runs, their event
// streams, and the audit log. It records history for inspection; it is
// not a checkpoint mechanism and runs are never resumed from it.
type Store interface {
	// Init opens the underlying database and configures the connection pool.
	Init(ctx context.Context) error

	// Close releases the database handle.
	Close() error

	// Migrate applies any pending schema migrations.
	Migrate(ctx context.Context) error

	// CreateRun inserts a new run record.
	CreateRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, id string) (*Run, error)

	// UpdateRunStatus transitions a run to a new status. A terminal
	// status sets the completion timestamp; errMsg may be empty.
	UpdateRunStatus(ctx context.Context, id string, status RunStatus, errMsg string) error

	// CompleteRun marks a run terminal and records its final output.
	CompleteRun(ctx context.Context, id string, status RunStatus, output string, errMsg string) error

	// ListRuns returns runs matching the filter, most recent first.
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)

	// AppendEvent appends an event to a run's stream and returns its ID.
	AppendEvent(ctx context.Context, event *Event) (int64, error)

	// GetEvents returns a run's events in append order. A non-empty
	// level restricts results to that level.
	GetEvents(ctx context.Context, runID string, level EventLevel) ([]*Event, error)

	// AppendAudit records an audit log entry.
	AppendAudit(ctx context.Context, entry *AuditEntry) error

	// GetAuditLog returns audit entries, most recent first. A non-empty
	// runID restricts results to that run.
	GetAuditLog(ctx context.Context, runID string, limit int) ([]*AuditEntry, error)

	// HealthCheck verifies database connectivity.
	HealthCheck(ctx context.Context) error
}
