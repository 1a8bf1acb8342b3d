package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr :8080, got %s", cfg.Server.ListenAddr)
	}
	if cfg.Engine.MaxParallel != 8 {
		t.Errorf("expected default max parallel 8, got %d", cfg.Engine.MaxParallel)
	}
	if cfg.Telemetry.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Telemetry.LogLevel)
	}
	if !cfg.Policy.Enabled {
		t.Error("expected policy enforcement enabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_addr: ":9090"
  read_timeout: 10s
store:
  path: /tmp/agentflow-test.db
telemetry:
  log_level: debug
  log_format: json
engine:
  max_parallel: 4
  max_iterations: 50
policy:
  enabled: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("expected listen addr :9090, got %s", cfg.Server.ListenAddr)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("expected read timeout 10s, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Store.Path != "/tmp/agentflow-test.db" {
		t.Errorf("unexpected store path: %s", cfg.Store.Path)
	}
	if cfg.Telemetry.LogFormat != "json" {
		t.Errorf("expected log format json, got %s", cfg.Telemetry.LogFormat)
	}
	if cfg.Engine.MaxParallel != 4 {
		t.Errorf("expected max parallel 4, got %d", cfg.Engine.MaxParallel)
	}
	if cfg.Policy.Enabled {
		t.Error("expected policy enforcement disabled")
	}

	// Unset fields keep their defaults
	if cfg.Server.WriteTimeout != 60*time.Second {
		t.Errorf("expected default write timeout, got %s", cfg.Server.WriteTimeout)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "bad log level",
			content: `
telemetry:
  log_level: loud
`,
		},
		{
			name: "bad log format",
			content: `
telemetry:
  log_format: xml
`,
		},
		{
			name: "negative max parallel",
			content: `
engine:
  max_parallel: -1
`,
		},
		{
			name: "empty store path",
			content: `
store:
  path: ""
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AGENTFLOW_LISTEN_ADDR", ":7070")
	t.Setenv("AGENTFLOW_LOG_LEVEL", "warn")
	t.Setenv("AGENTFLOW_METRICS_ENABLED", "false")
	t.Setenv("AGENTFLOW_MAX_PARALLEL", "16")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddr != ":7070" {
		t.Errorf("expected env listen addr :7070, got %s", cfg.Server.ListenAddr)
	}
	if cfg.Telemetry.LogLevel != "warn" {
		t.Errorf("expected env log level warn, got %s", cfg.Telemetry.LogLevel)
	}
	if cfg.Telemetry.MetricsEnabled {
		t.Error("expected metrics disabled via env")
	}
	if cfg.Engine.MaxParallel != 16 {
		t.Errorf("expected env max parallel 16, got %d", cfg.Engine.MaxParallel)
	}
}

func TestEnvOverridesBeatFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_addr: ":9090"
`)
	t.Setenv("AGENTFLOW_LISTEN_ADDR", ":7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.ListenAddr != ":7070" {
		t.Errorf("expected env to win over file, got %s", cfg.Server.ListenAddr)
	}
}

func TestToTelemetry(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.LogLevel = "debug"
	cfg.Telemetry.Environment = "production"

	tc := cfg.Telemetry.ToTelemetry("1.2.3")
	if tc.ServiceName != "agentflow" {
		t.Errorf("unexpected service name: %s", tc.ServiceName)
	}
	if tc.ServiceVersion != "1.2.3" {
		t.Errorf("unexpected service version: %s", tc.ServiceVersion)
	}
	if tc.Logging.Level != "debug" {
		t.Errorf("unexpected log level: %s", tc.Logging.Level)
	}
	if err := tc.Validate(); err != nil {
		t.Errorf("converted telemetry config should validate: %v", err)
	}
}

func TestStoresConfig(t *testing.T) {
	cfg := Default()
	sc := cfg.Store.StoresConfig()
	if sc.Path != cfg.Store.Path {
		t.Errorf("unexpected store path: %s", sc.Path)
	}
	if sc.MaxOpenConns != 25 {
		t.Errorf("unexpected max open conns: %d", sc.MaxOpenConns)
	}
}
