package policy

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func newTestLoader() *Loader {
	return NewLoader(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestLoadFromFile_Rego(t *testing.T) {
	loader := newTestLoader()

	dir := t.TempDir()
	content := `# Blocks instructions without a topic
# severity: error
package test.policies.topic

import rego.v1

deny contains violation if {
	not input.context.topic
	violation := {"message": "no topic", "severity": "error"}
}
`
	path := filepath.Join(dir, "require-topic.rego")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	policies, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("loaded %d policies, want 1", len(policies))
	}

	p := policies[0]
	if p.Name != "require-topic" {
		t.Errorf("name = %q, want %q", p.Name, "require-topic")
	}
	if p.Description != "Blocks instructions without a topic" {
		t.Errorf("description = %q", p.Description)
	}
	if p.Severity != SeverityError {
		t.Errorf("severity = %q, want %q (from annotation)", p.Severity, SeverityError)
	}
	if !p.Enabled {
		t.Error("loaded policy should be enabled by default")
	}
}

func TestLoadFromFile_RegoDefaultSeverity(t *testing.T) {
	loader := newTestLoader()

	dir := t.TempDir()
	content := "package test.policies.plain\n\nimport rego.v1\n"
	path := filepath.Join(dir, "plain.rego")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	policies, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if policies[0].Severity != SeverityWarning {
		t.Errorf("severity = %q, want default %q", policies[0].Severity, SeverityWarning)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	loader := newTestLoader()

	dir := t.TempDir()
	policy := Policy{
		Name:    "json-policy",
		Rego:    "package test.policies.json\n",
		Enabled: true,
	}
	data, _ := json.Marshal(policy)
	path := filepath.Join(dir, "policy.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	policies, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("loaded %d policies, want 1", len(policies))
	}
	if policies[0].Name != "json-policy" {
		t.Errorf("name = %q, want %q", policies[0].Name, "json-policy")
	}
	if policies[0].Severity != SeverityWarning {
		t.Errorf("severity = %q, want default %q", policies[0].Severity, SeverityWarning)
	}
	if policies[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be defaulted")
	}
}

func TestLoadFromDirectory_Recursive(t *testing.T) {
	loader := newTestLoader()

	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	files := map[string]string{
		filepath.Join(dir, "one.rego"):   "package test.one\n",
		filepath.Join(sub, "two.rego"):   "package test.two\n",
		filepath.Join(dir, "ignore.txt"): "not a policy",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile %s: %v", path, err)
		}
	}

	policies, err := loader.LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if len(policies) != 2 {
		t.Errorf("loaded %d policies, want 2", len(policies))
	}
}

func TestLoadBundle(t *testing.T) {
	loader := newTestLoader()

	dir := t.TempDir()
	bundle := Bundle{
		Name:    "test-bundle",
		Version: "1.0.0",
		Policies: []Policy{
			{Name: "a", Rego: "package test.a\n"},
			{Name: "b", Rego: "package test.b\n"},
		},
	}
	data, _ := json.Marshal(bundle)
	path := filepath.Join(dir, "bundle.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loaded, err := loader.LoadBundle(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if loaded.Name != "test-bundle" {
		t.Errorf("bundle name = %q, want %q", loaded.Name, "test-bundle")
	}
	if len(loaded.Policies) != 2 {
		t.Errorf("bundle policies = %d, want 2", len(loaded.Policies))
	}
}

func TestExtractAnnotations(t *testing.T) {
	loader := newTestLoader()

	tests := []struct {
		name         string
		content      string
		wantDesc     string
		wantSeverity Severity
	}{
		{
			name:         "description and severity",
			content:      "# Enforces things\n# severity: critical\npackage x\n",
			wantDesc:     "Enforces things",
			wantSeverity: SeverityCritical,
		},
		{
			name:         "multi-line description",
			content:      "# First part\n# second part\npackage x\n",
			wantDesc:     "First part second part",
			wantSeverity: "",
		},
		{
			name:         "no comments",
			content:      "package x\n",
			wantDesc:     "",
			wantSeverity: "",
		},
		{
			name:         "comments after code ignored",
			content:      "package x\n# trailing comment\n",
			wantDesc:     "",
			wantSeverity: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, severity := loader.extractAnnotations(tt.content)
			if desc != tt.wantDesc {
				t.Errorf("description = %q, want %q", desc, tt.wantDesc)
			}
			if severity != tt.wantSeverity {
				t.Errorf("severity = %q, want %q", severity, tt.wantSeverity)
			}
		})
	}
}

func TestClearCache(t *testing.T) {
	loader := newTestLoader()

	dir := t.TempDir()
	path := filepath.Join(dir, "cached.rego")
	if err := os.WriteFile(path, []byte("package test.cached\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := loader.loadFromFile(context.Background(), path); err != nil {
		t.Fatalf("loadFromFile: %v", err)
	}
	if len(loader.cache) != 1 {
		t.Fatalf("cache size = %d, want 1", len(loader.cache))
	}

	loader.ClearCache()
	if len(loader.cache) != 0 {
		t.Errorf("cache size after clear = %d, want 0", len(loader.cache))
	}
}

func TestLoadFromFile_UnsupportedType(t *testing.T) {
	loader := newTestLoader()

	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte("name: x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := loader.loadFromFile(context.Background(), path); err == nil {
		t.Error("expected error for unsupported file type")
	}
}

func TestLoadFromFile_InvalidJSON(t *testing.T) {
	loader := newTestLoader()

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := loader.loadFromFile(context.Background(), path); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestLoadFromPath_NonExistent(t *testing.T) {
	loader := newTestLoader()

	if _, err := loader.LoadFromPaths(context.Background(), []string{"/no/such/path"}); err == nil {
		t.Error("expected error for non-existent path")
	}
}
