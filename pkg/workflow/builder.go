package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/agentflow/agentflow/pkg/agent"
	"github.com/agentflow/agentflow/pkg/instruction"
)

// ErrNoSteps is returned when a definition has no workflow steps.
var ErrNoSteps = errors.New("no workflow steps found")

// ErrInvalidDefinition marks definition errors other than ErrNoSteps:
// failed struct validation, duplicate step IDs, or steps whose agent
// cannot be built. Callers match it with errors.Is.
var ErrInvalidDefinition = errors.New("invalid workflow definition")

// Builder materializes workflow definitions into instruction trees.
// Each step becomes an agent created through the factory, wrapped in an
// instruction whose body retries per the step configuration; steps are
// assembled under a sequential or parallel combinator.
type Builder struct {
	factory   *agent.Factory
	validate  *validator.Validate
	logger    zerolog.Logger
	collector instruction.Collector
	rules     []instruction.ValidationRule

	// defaults applied when the definition leaves them unset
	defaultMaxParallel int
}

// NewBuilder creates a builder over the given agent factory.
func NewBuilder(factory *agent.Factory, logger zerolog.Logger) *Builder {
	return &Builder{
		factory:            factory,
		validate:           validator.New(),
		logger:             logger.With().Str("component", "workflow_builder").Logger(),
		defaultMaxParallel: 8,
	}
}

// SetCollector sets the metrics collector wired into every built
// instruction.
func (b *Builder) SetCollector(c instruction.Collector) { b.collector = c }

// SetDefaultMaxParallel sets the parallel cap used when a definition
// does not specify one.
func (b *Builder) SetDefaultMaxParallel(n int) {
	if n > 0 {
		b.defaultMaxParallel = n
	}
}

// AddValidationRule appends a validation rule applied to every built
// workflow root, ahead of any step execution.
func (b *Builder) AddValidationRule(rule instruction.ValidationRule) {
	b.rules = append(b.rules, rule)
}

// Validate checks a definition without building it.
func (b *Builder) Validate(def *Definition) error {
	if def == nil {
		return fmt.Errorf("%w: definition is required", ErrInvalidDefinition)
	}
	if len(def.Steps) == 0 {
		return ErrNoSteps
	}
	if err := b.validate.Struct(def); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	seen := make(map[string]bool, len(def.Steps))
	for _, step := range def.Steps {
		if seen[step.ID] {
			return fmt.Errorf("%w: duplicate step ID %s", ErrInvalidDefinition, step.ID)
		}
		seen[step.ID] = true
	}
	return nil
}

// Build validates the definition and assembles its instruction tree.
func (b *Builder) Build(def *Definition) (instruction.Instruction, error) {
	return b.build(def, b.collector)
}

// BuildFor assembles the tree with a run-scoped collector fanned out
// alongside the builder's static collector.
func (b *Builder) BuildFor(def *Definition, c instruction.Collector) (instruction.Instruction, error) {
	return b.build(def, combineCollectors(b.collector, c))
}

func (b *Builder) build(def *Definition, collector instruction.Collector) (instruction.Instruction, error) {
	if err := b.Validate(def); err != nil {
		return nil, err
	}

	children := make([]instruction.Instruction, 0, len(def.Steps))
	for i := range def.Steps {
		child, err := b.buildStep(&def.Steps[i], def.Execution, collector)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	var root instruction.Instruction
	if def.Execution.Parallel {
		p := instruction.NewParallel(def.Name, def.Description)
		maxParallel := def.Execution.MaxParallel
		if maxParallel <= 0 {
			maxParallel = b.defaultMaxParallel
		}
		p.SetMaxParallel(maxParallel)
		p.SetChildren(children)
		for _, rule := range b.rules {
			p.AddValidationRule(rule)
		}
		if collector != nil {
			p.SetCollector(collector)
		}
		root = p
	} else {
		c := instruction.NewComposite(def.Name, def.Description)
		c.SetChildren(children)
		for _, rule := range b.rules {
			c.AddValidationRule(rule)
		}
		if collector != nil {
			c.SetCollector(collector)
		}
		root = c
	}

	b.logger.Debug().
		Str("workflow", def.Name).
		Int("steps", len(def.Steps)).
		Bool("parallel", def.Execution.Parallel).
		Msg("workflow materialized")

	return root, nil
}

// buildStep creates the agent for one step and wraps it in an
// instruction with retry semantics.
func (b *Builder) buildStep(step *Step, exec ExecutionConfig, collector instruction.Collector) (instruction.Instruction, error) {
	cfg := b.stepAgentConfig(step)

	ag, err := b.factory.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: step %s: %w", ErrInvalidDefinition, step.ID, err)
	}

	maxRetries := step.MaxRetries
	if maxRetries == 0 {
		maxRetries = exec.MaxRetries
	}
	delay := exec.RetryDelay
	backoff := exec.RetryBackoff
	if backoff < 1 {
		backoff = 1
	}

	inst := instruction.NewAdvanced(step.ID, step.Description)
	inst.SetBody(func(ctx context.Context, ec *instruction.Context) (map[string]any, error) {
		input := b.stepInput(step, ec)

		var lastErr error
		wait := delay
		for attempt := 0; attempt <= maxRetries; attempt++ {
			if attempt > 0 && wait > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(wait):
				}
				wait = time.Duration(float64(wait) * backoff)
			}

			res := ag.Process(ctx, input)
			if res.Status == instruction.StatusCompleted {
				return map[string]any{step.ID: res.Data}, nil
			}
			lastErr = fmt.Errorf("step %s attempt %d: %s", step.ID, attempt+1, res.Error)

			if ctx.Err() != nil {
				return nil, lastErr
			}
		}
		return nil, lastErr
	})
	if collector != nil {
		inst.SetCollector(collector)
	}

	return inst, nil
}

// multiCollector fans collector callbacks out to several collectors.
type multiCollector []instruction.Collector

func (m multiCollector) InstructionStarted(kind, name string) {
	for _, c := range m {
		c.InstructionStarted(kind, name)
	}
}

func (m multiCollector) InstructionFinished(kind, name string, status instruction.Status, duration time.Duration) {
	for _, c := range m {
		c.InstructionFinished(kind, name, status, duration)
	}
}

func combineCollectors(collectors ...instruction.Collector) instruction.Collector {
	var present multiCollector
	for _, c := range collectors {
		if c != nil {
			present = append(present, c)
		}
	}
	switch len(present) {
	case 0:
		return nil
	case 1:
		return present[0]
	default:
		return present
	}
}

// stepAgentConfig derives the agent configuration for a step, preferring
// an explicit agent_config and filling identity from the step itself.
func (b *Builder) stepAgentConfig(step *Step) agent.Config {
	var cfg agent.Config
	if step.AgentConfig != nil {
		cfg = *step.AgentConfig
	}
	if cfg.Name == "" {
		cfg.Name = step.Name
	}
	if cfg.Type == "" {
		cfg.Type = step.Type
	}
	if cfg.Description == "" {
		cfg.Description = step.Description
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = step.Timeout
	}
	return cfg
}

// stepInput selects the step's declared inputs from the shared context.
// A step with no declared inputs sees the whole context.
func (b *Builder) stepInput(step *Step, ec *instruction.Context) map[string]any {
	values := ec.Values()
	if len(step.Inputs) == 0 {
		return values
	}

	input := make(map[string]any, len(step.Inputs))
	for _, key := range step.Inputs {
		if v, ok := values[key]; ok {
			input[key] = v
		}
	}
	return input
}
