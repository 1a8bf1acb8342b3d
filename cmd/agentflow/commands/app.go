package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentflow/agentflow/pkg/agent"
	"github.com/agentflow/agentflow/pkg/config"
	"github.com/agentflow/agentflow/pkg/instruction"
	"github.com/agentflow/agentflow/pkg/instructions/dataproc"
	"github.com/agentflow/agentflow/pkg/instructions/transform"
	"github.com/agentflow/agentflow/pkg/policy"
	"github.com/agentflow/agentflow/pkg/stores"
	"github.com/agentflow/agentflow/pkg/telemetry"
	"github.com/agentflow/agentflow/pkg/workflow"
)

// app bundles the wired runtime shared by the serve and run commands.
type app struct {
	cfg      *config.Config
	tel      *telemetry.Telemetry
	store    *stores.SQLiteStore
	policies *policy.Engine
	loader   *policy.Loader
	factory  *agent.Factory
	builder  *workflow.Builder
	runner   *workflow.Runner
	logger   zerolog.Logger
}

// newApp loads configuration and wires the store, telemetry, policy
// engine, agent factory, and workflow runner together.
func newApp(ctx context.Context, version string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.LogLevel = "debug"
	}

	tel, err := telemetry.NewTelemetry(cfg.Telemetry.ToTelemetry(version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	logger := tel.Logger.Zerolog()

	store, err := stores.NewSQLiteStore(cfg.Store.StoresConfig())
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		tel:    tel,
		store:  store,
		logger: logger,
	}

	if cfg.Policy.Enabled {
		eng, err := policy.NewEngine(logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
		}
		if len(cfg.Policy.Paths) > 0 {
			if err := eng.LoadPolicies(ctx, cfg.Policy.Paths); err != nil {
				store.Close()
				return nil, err
			}
		}
		if cfg.Policy.Watch && len(cfg.Policy.Paths) > 0 {
			loader := policy.NewLoader(logger)
			reload := func(policies []policy.Policy) error {
				return eng.ApplyPolicies(ctx, policies)
			}
			if err := loader.Watch(ctx, cfg.Policy.Paths, reload); err != nil {
				logger.Warn().Err(err).Msg("Failed to watch policy paths")
			} else {
				a.loader = loader
			}
		}
		a.policies = eng
	}

	factory := agent.NewFactory("agentflow", "workflow agent factory", logger)
	factory.RegisterBuilder(agent.TypeResearch, genericBuilder)
	factory.RegisterBuilder(agent.TypeDocument, genericBuilder)
	factory.RegisterBuilder(agent.TypeCustom, genericBuilder)
	factory.RegisterBuilder(agent.TypeDataScience, dataprocBuilder)
	a.factory = factory

	builder := workflow.NewBuilder(factory, logger)
	builder.SetCollector(tel.Metrics)
	builder.SetDefaultMaxParallel(cfg.Engine.MaxParallel)
	if a.policies != nil {
		builder.AddValidationRule(a.policies.ValidationRule(&policy.InstructionInfo{
			Name: "workflow",
			Kind: "composite",
		}))
	}
	a.builder = builder

	runner := workflow.NewRunner(store, builder, tel, logger)
	runner.SetRunTimeout(cfg.Engine.RunTimeout)
	a.runner = runner

	return a, nil
}

// Close flushes telemetry and releases runtime resources.
func (a *app) Close() {
	if a.loader != nil {
		if err := a.loader.StopWatching(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to stop policy watcher")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close store")
		}
	}
	if a.tel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tel.Shutdown(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to shut down telemetry")
		}
	}
}

// genericBuilder produces a pass-through agent root that echoes the
// execution context. It backs agent types with no specialized pipeline.
func genericBuilder(cfg agent.Config) (instruction.Instruction, error) {
	inst := instruction.NewBase(cfg.Name, cfg.Description)
	inst.SetBody(func(_ context.Context, ec *instruction.Context) (map[string]any, error) {
		return ec.Values(), nil
	})
	return inst, nil
}

// dataprocBuilder produces the data-science pipeline. A "strategies"
// list in domain_config selects a transformation pipeline; otherwise
// the clustering pipeline runs, tuned from domain_config when present.
func dataprocBuilder(cfg agent.Config) (instruction.Instruction, error) {
	if specs, ok := cfg.DomainConfig["strategies"].([]any); ok {
		strategies, err := transform.FromConfig(specs)
		if err != nil {
			return nil, err
		}
		return transform.New(cfg.Name, cfg.Description, strategies...), nil
	}

	opts := dataproc.DefaultOptions()
	if v, ok := intOption(cfg.DomainConfig, "n_components"); ok {
		opts.NComponents = v
	}
	if v, ok := intOption(cfg.DomainConfig, "n_clusters"); ok {
		opts.NClusters = v
	}
	if v, ok := intOption(cfg.DomainConfig, "max_iterations"); ok {
		opts.MaxIterations = v
	}
	return dataproc.New(cfg.Name, cfg.Description, opts), nil
}

// intOption reads an integer from decoded JSON/YAML, where numbers may
// arrive as float64.
func intOption(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
