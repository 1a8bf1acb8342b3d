package config

import (
	"time"

	"github.com/agentflow/agentflow/pkg/stores"
	"github.com/agentflow/agentflow/pkg/telemetry"
)

// Config is the top-level application configuration.
type Config struct {
	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server"`

	// Store configures run persistence.
	Store StoreConfig `yaml:"store"`

	// Telemetry configures logging, metrics, tracing, and events.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Engine configures execution defaults.
	Engine EngineConfig `yaml:"engine"`

	// Policy configures context governance.
	Policy PolicyConfig `yaml:"policy"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	// ListenAddr is the address the API listens on.
	ListenAddr string `yaml:"listen_addr" validate:"required"`

	// ReadTimeout bounds request reads.
	ReadTimeout time.Duration `yaml:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds response writes.
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"min=0"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`

	// CORSOrigins lists allowed CORS origins. Empty disables CORS.
	CORSOrigins []string `yaml:"cors_origins"`
}

// StoreConfig configures the SQLite run store.
type StoreConfig struct {
	// Path is the SQLite database path. ":memory:" is accepted for tests.
	Path string `yaml:"path" validate:"required"`

	// MaxOpenConns limits the connection pool.
	MaxOpenConns int `yaml:"max_open_conns" validate:"min=0"`

	// MaxIdleConns limits idle connections.
	MaxIdleConns int `yaml:"max_idle_conns" validate:"min=0"`

	// ConnMaxLifetime bounds connection reuse.
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" validate:"min=0"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	// ServiceName identifies this deployment in logs and traces.
	ServiceName string `yaml:"service_name" validate:"required"`

	// Environment is the deployment environment.
	Environment string `yaml:"environment" validate:"required,oneof=development staging production test"`

	// LogLevel is the minimum log level.
	LogLevel string `yaml:"log_level" validate:"required,oneof=trace debug info warn error fatal panic"`

	// LogFormat selects console or json output.
	LogFormat string `yaml:"log_format" validate:"required,oneof=json console"`

	// MetricsEnabled toggles the Prometheus registry and /metrics.
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// TracingEnabled toggles OpenTelemetry tracing.
	TracingEnabled bool `yaml:"tracing_enabled"`

	// TracingEndpoint is the OTLP collector endpoint.
	TracingEndpoint string `yaml:"tracing_endpoint" validate:"required_if=TracingEnabled true"`

	// TracingSampleRate is the trace sampling ratio.
	TracingSampleRate float64 `yaml:"tracing_sample_rate" validate:"min=0,max=1"`
}

// EngineConfig configures execution defaults.
type EngineConfig struct {
	// MaxParallel caps concurrent branches in parallel instructions.
	MaxParallel int `yaml:"max_parallel" validate:"min=1"`

	// MaxIterations caps iterative instruction loops.
	MaxIterations int `yaml:"max_iterations" validate:"min=1"`

	// RunTimeout bounds a whole workflow run. Zero means no limit.
	RunTimeout time.Duration `yaml:"run_timeout" validate:"min=0"`

	// InstructionTimeout bounds a single instruction. Zero means no limit.
	InstructionTimeout time.Duration `yaml:"instruction_timeout" validate:"min=0"`
}

// PolicyConfig configures context governance.
type PolicyConfig struct {
	// Enabled toggles policy evaluation before instruction execution.
	Enabled bool `yaml:"enabled"`

	// Paths lists .rego/.json policy files or directories.
	Paths []string `yaml:"paths"`

	// Watch enables hot reload of policy paths.
	Watch bool `yaml:"watch"`
}

// StoreConfig converts to the stores package configuration.
func (c StoreConfig) StoresConfig() stores.Config {
	return stores.Config{
		Path:            c.Path,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

// TelemetryConfig converts to the telemetry package configuration.
func (c TelemetryConfig) ToTelemetry(version string) *telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceName = c.ServiceName
	tc.ServiceVersion = version
	tc.Environment = c.Environment
	tc.Logging.Level = c.LogLevel
	tc.Logging.Format = c.LogFormat
	tc.Metrics.Enabled = c.MetricsEnabled
	tc.Tracing.Enabled = c.TracingEnabled
	if c.TracingEndpoint != "" {
		tc.Tracing.Endpoint = c.TracingEndpoint
	}
	if c.TracingSampleRate > 0 {
		tc.Tracing.SamplingRate = c.TracingSampleRate
	}
	return tc
}
