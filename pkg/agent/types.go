package agent

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// AgentType classifies what an agent does.
type AgentType string

const (
	TypeResearch    AgentType = "research"
	TypeDataScience AgentType = "data_science"
	TypeDocument    AgentType = "document"
	TypeCustom      AgentType = "custom"
)

// AgentMode selects how an agent's steps are dispatched.
type AgentMode string

const (
	ModeSequential AgentMode = "sequential"
	ModeParallel   AgentMode = "parallel"
)

// Config describes an agent to be built by the factory.
type Config struct {
	// Name is the human-readable agent name.
	Name string `json:"name" yaml:"name" validate:"required"`

	// Type selects the builder used to assemble the instruction tree.
	Type AgentType `json:"type" yaml:"type" validate:"required,oneof=research data_science document custom"`

	// Mode selects sequential or parallel dispatch of the agent's steps.
	Mode AgentMode `json:"mode,omitempty" yaml:"mode,omitempty" validate:"omitempty,oneof=sequential parallel"`

	// Version is an optional configuration version.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Description is an optional human-readable summary.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// MaxIterations caps iterative steps built for this agent.
	MaxIterations int `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty" validate:"min=0"`

	// Timeout bounds a single Process call. Zero means no limit.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"min=0"`

	// DomainConfig carries type-specific settings the builder interprets,
	// such as research domains or model selection.
	DomainConfig map[string]any `json:"domain_config,omitempty" yaml:"domain_config,omitempty"`
}

var validate = validator.New()

// Validate checks the configuration and applies defaults.
func (c *Config) Validate() error {
	if c.Mode == "" {
		c.Mode = ModeSequential
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid agent config: %w", err)
	}
	return nil
}
