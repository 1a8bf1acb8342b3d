package workflow

import (
	"time"

	"github.com/agentflow/agentflow/pkg/agent"
)

// Step is one unit of a workflow definition. The HTTP layer decodes
// request JSON directly into this shape.
type Step struct {
	// ID identifies the step within its workflow.
	ID string `json:"step_id" yaml:"step_id" validate:"required"`

	// Type is the agent type that executes this step.
	Type agent.AgentType `json:"type" yaml:"type" validate:"required,oneof=research data_science document custom"`

	// Name is the human-readable step name.
	Name string `json:"name" yaml:"name" validate:"required"`

	// Description is an optional summary.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Inputs lists the context keys this step reads.
	Inputs []string `json:"input,omitempty" yaml:"input,omitempty"`

	// Output describes the expected output shape. Informational.
	Output map[string]any `json:"output,omitempty" yaml:"output,omitempty"`

	// AgentConfig overrides the agent configuration for this step.
	// When nil, a config is derived from the step itself.
	AgentConfig *agent.Config `json:"agent_config,omitempty" yaml:"agent_config,omitempty"`

	// MaxRetries is the number of retry attempts after a failure.
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty" validate:"min=0"`

	// Timeout bounds one attempt of this step. Zero means no limit.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"min=0"`
}

// ExecutionConfig controls how a workflow's steps are dispatched.
type ExecutionConfig struct {
	// Parallel dispatches steps concurrently instead of in order.
	Parallel bool `json:"parallel,omitempty" yaml:"parallel,omitempty"`

	// MaxParallel caps concurrent steps when Parallel is set.
	// Zero uses the runner default.
	MaxParallel int `json:"max_parallel,omitempty" yaml:"max_parallel,omitempty" validate:"min=0"`

	// MaxRetries is the default retry count for steps that do not set
	// their own.
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty" validate:"min=0"`

	// RetryDelay is the initial delay between retry attempts.
	RetryDelay time.Duration `json:"retry_delay,omitempty" yaml:"retry_delay,omitempty" validate:"min=0"`

	// RetryBackoff multiplies the delay after each failed attempt.
	RetryBackoff float64 `json:"retry_backoff,omitempty" yaml:"retry_backoff,omitempty" validate:"min=0"`

	// Timeout bounds the whole workflow run. Zero uses the runner default.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"min=0"`
}

// Definition is a complete workflow: a named list of steps plus
// execution settings.
type Definition struct {
	// Name identifies the workflow in run records and metrics.
	Name string `json:"name" yaml:"name" validate:"required"`

	// Description is an optional summary.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Steps are the workflow's units, in declaration order.
	Steps []Step `json:"steps" yaml:"steps" validate:"required,min=1,dive"`

	// Execution controls dispatch, retries, and timeouts.
	Execution ExecutionConfig `json:"execution,omitempty" yaml:"execution,omitempty"`
}
