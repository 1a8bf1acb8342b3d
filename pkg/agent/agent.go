package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentflow/agentflow/pkg/instruction"
)

// Agent binds a validated configuration to a root instruction tree.
// Processing delegates entirely to the root's Execute contract.
type Agent struct {
	id     string
	config Config
	root   instruction.Instruction
	logger zerolog.Logger
}

// New creates an agent from a validated config and its root instruction.
func New(cfg Config, root instruction.Instruction, logger zerolog.Logger) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("agent %s: root instruction is required", cfg.Name)
	}

	id := uuid.New().String()
	return &Agent{
		id:     id,
		config: cfg,
		root:   root,
		logger: logger.With().Str("agent_id", id).Str("agent", cfg.Name).Logger(),
	}, nil
}

// ID returns the generated agent identifier.
func (a *Agent) ID() string { return a.id }

// Name returns the configured agent name.
func (a *Agent) Name() string { return a.config.Name }

// Type returns the configured agent type.
func (a *Agent) Type() AgentType { return a.config.Type }

// Mode returns the configured dispatch mode.
func (a *Agent) Mode() AgentMode { return a.config.Mode }

// Config returns a copy of the agent's configuration.
func (a *Agent) Config() Config { return a.config }

// Root returns the agent's root instruction.
func (a *Agent) Root() instruction.Instruction { return a.root }

// Process runs the agent's root instruction against the given input
// values. The configured timeout, if any, bounds the whole call.
func (a *Agent) Process(ctx context.Context, input map[string]any) *instruction.Result {
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	a.logger.Debug().
		Str("instruction", a.root.Name()).
		Int("input_keys", len(input)).
		Msg("agent processing started")

	result := a.root.Execute(ctx, instruction.NewContext(input))

	a.logger.Debug().
		Str("status", string(result.Status)).
		Msg("agent processing finished")

	return result
}
