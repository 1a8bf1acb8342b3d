package agent

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentflow/agentflow/pkg/instruction"
)

// Builder assembles a root instruction tree from an agent configuration.
// One builder is registered per agent type.
type Builder func(cfg Config) (instruction.Instruction, error)

// Factory creates and tracks agents. Builders map agent types to
// instruction trees; created agents are held in a registry keyed by ID.
type Factory struct {
	id          string
	name        string
	description string
	metadata    map[string]any
	logger      zerolog.Logger

	mu       sync.RWMutex
	agents   map[string]*Agent
	builders map[AgentType]Builder
}

// NewFactory creates an empty agent factory.
func NewFactory(name, description string, logger zerolog.Logger) *Factory {
	return &Factory{
		id:          uuid.New().String(),
		name:        name,
		description: description,
		metadata:    make(map[string]any),
		logger:      logger.With().Str("component", "agent_factory").Logger(),
		agents:      make(map[string]*Agent),
		builders:    make(map[AgentType]Builder),
	}
}

// ID returns the factory identifier.
func (f *Factory) ID() string { return f.id }

// Name returns the factory name.
func (f *Factory) Name() string { return f.name }

// SetMetadata sets a metadata entry on the factory.
func (f *Factory) SetMetadata(key string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadata[key] = value
}

// RegisterBuilder registers the builder for an agent type. Registering a
// type twice replaces the previous builder.
func (f *Factory) RegisterBuilder(agentType AgentType, builder Builder) error {
	if builder == nil {
		return fmt.Errorf("builder for type %s is nil", agentType)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[agentType] = builder

	f.logger.Debug().Str("type", string(agentType)).Msg("agent builder registered")
	return nil
}

// Create validates the config, builds the instruction tree with the
// registered builder for its type, and registers the resulting agent.
func (f *Factory) Create(cfg Config) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	builder, ok := f.builders[cfg.Type]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no builder registered for agent type %s", cfg.Type)
	}

	root, err := builder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build agent %s: %w", cfg.Name, err)
	}

	ag, err := New(cfg, root, f.logger)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.agents[ag.ID()] = ag
	f.mu.Unlock()

	f.logger.Info().
		Str("agent_id", ag.ID()).
		Str("agent", ag.Name()).
		Str("type", string(cfg.Type)).
		Msg("agent created")

	return ag, nil
}

// Get returns the agent with the given ID.
func (f *Factory) Get(id string) (*Agent, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ag, ok := f.agents[id]
	if !ok {
		return nil, fmt.Errorf("agent not found: %s", id)
	}
	return ag, nil
}

// List returns the IDs of all registered agents.
func (f *Factory) List() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := make([]string, 0, len(f.agents))
	for id := range f.agents {
		ids = append(ids, id)
	}
	return ids
}

// Remove deletes the agent with the given ID. Removing an unknown ID is
// a no-op.
func (f *Factory) Remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.agents, id)
}
