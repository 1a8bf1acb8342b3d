package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Path:            "agentflow.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			ServiceName:       "agentflow",
			Environment:       "development",
			LogLevel:          "info",
			LogFormat:         "console",
			MetricsEnabled:    true,
			TracingEnabled:    false,
			TracingSampleRate: 1.0,
		},
		Engine: EngineConfig{
			MaxParallel:        8,
			MaxIterations:      100,
			RunTimeout:         10 * time.Minute,
			InstructionTimeout: 2 * time.Minute,
		},
		Policy: PolicyConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from an optional YAML file, applies environment
// overrides, and validates the result. An empty path uses the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies AGENTFLOW_* environment variables over the
// loaded configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENTFLOW_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("AGENTFLOW_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("AGENTFLOW_LOG_LEVEL"); v != "" {
		cfg.Telemetry.LogLevel = v
	}
	if v := os.Getenv("AGENTFLOW_LOG_FORMAT"); v != "" {
		cfg.Telemetry.LogFormat = v
	}
	if v := os.Getenv("AGENTFLOW_ENVIRONMENT"); v != "" {
		cfg.Telemetry.Environment = v
	}
	if v := os.Getenv("AGENTFLOW_TRACING_ENDPOINT"); v != "" {
		cfg.Telemetry.TracingEndpoint = v
		cfg.Telemetry.TracingEnabled = true
	}
	if v := os.Getenv("AGENTFLOW_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Telemetry.MetricsEnabled = b
		}
	}
	if v := os.Getenv("AGENTFLOW_MAX_PARALLEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Engine.MaxParallel = n
		}
	}
}
