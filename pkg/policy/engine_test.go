package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/agentflow/agentflow/pkg/instruction"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	eng, err := NewEngine(logger)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return eng
}

func TestNewEngine(t *testing.T) {
	eng := newTestEngine(t)

	policies := eng.ListPolicies()
	if len(policies) == 0 {
		t.Fatal("No built-in policies loaded")
	}

	expectedPolicies := []string{
		"instruction-naming",
		"context-reserved-keys",
		"context-non-empty",
	}

	for _, expected := range expectedPolicies {
		found := false
		for _, p := range policies {
			if p.Name == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected built-in policy not found: %s", expected)
		}
	}
}

func TestEvaluate_NamingPolicy(t *testing.T) {
	eng := newTestEngine(t)

	tests := []struct {
		name          string
		instruction   *InstructionInfo
		expectAllowed bool
	}{
		{
			name:          "valid instruction name",
			instruction:   &InstructionInfo{Name: "pipeline", Kind: "composite"},
			expectAllowed: true,
		},
		{
			name:          "empty name",
			instruction:   &InstructionInfo{Name: "", Kind: "advanced"},
			expectAllowed: false,
		},
		{
			name:          "padded name",
			instruction:   &InstructionInfo{Name: " pipeline ", Kind: "advanced"},
			expectAllowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := eng.Evaluate(context.Background(), &Input{
				Instruction: tt.instruction,
				Context:     map[string]interface{}{"data": "value"},
			})
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}

			if result.Allowed != tt.expectAllowed {
				t.Errorf("allowed = %v, want %v (violations: %+v)",
					result.Allowed, tt.expectAllowed, result.Violations)
			}
		})
	}
}

func TestEvaluate_ReservedKeys(t *testing.T) {
	eng := newTestEngine(t)

	result, err := eng.Evaluate(context.Background(), &Input{
		Instruction: &InstructionInfo{Name: "step", Kind: "advanced"},
		Context: map[string]interface{}{
			"data":    "value",
			"_hidden": "engine-internal",
		},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if result.Allowed {
		t.Error("context with reserved key should be denied")
	}

	found := false
	for _, v := range result.Violations {
		if v.Policy == "context-reserved-keys" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected context-reserved-keys violation, got: %+v", result.Violations)
	}
}

func TestEvaluateContext(t *testing.T) {
	eng := newTestEngine(t)

	ec := instruction.NewContext(map[string]any{"topic": "quantum"})
	info := &InstructionInfo{Name: "research", Kind: "advanced"}

	result, err := eng.EvaluateContext(context.Background(), info, ec)
	if err != nil {
		t.Fatalf("EvaluateContext: %v", err)
	}
	if !result.Allowed {
		t.Errorf("clean context should be allowed, violations: %+v", result.Violations)
	}
}

func TestValidationRuleBlocksExecution(t *testing.T) {
	eng := newTestEngine(t)

	inst := instruction.NewAdvanced("guarded", "policy-guarded step")
	inst.SetBody(func(ctx context.Context, ec *instruction.Context) (map[string]any, error) {
		return map[string]any{"ran": true}, nil
	})
	inst.AddValidationRule(eng.ValidationRule(&InstructionInfo{Name: "guarded", Kind: "advanced"}))

	// Reserved key in the context trips the built-in policy.
	ec := instruction.NewContext(map[string]any{"_internal": 1})
	res := inst.Execute(context.Background(), ec)

	if res.Status != instruction.StatusFailed {
		t.Fatalf("status = %v, want %v", res.Status, instruction.StatusFailed)
	}

	// Clean context passes.
	ec = instruction.NewContext(map[string]any{"data": 1})
	res = inst.Execute(context.Background(), ec)

	if res.Status != instruction.StatusCompleted {
		t.Fatalf("status = %v, want %v (error: %s)", res.Status, instruction.StatusCompleted, res.Error)
	}
}

func TestPolicyRule(t *testing.T) {
	eng := newTestEngine(t)

	rule, err := eng.PolicyRule("context-reserved-keys", &InstructionInfo{Name: "step"})
	if err != nil {
		t.Fatalf("PolicyRule: %v", err)
	}

	ok, err := rule(context.Background(), instruction.NewContext(map[string]any{"data": 1}))
	if err != nil || !ok {
		t.Errorf("clean context: ok = %v, err = %v, want true, nil", ok, err)
	}

	ok, err = rule(context.Background(), instruction.NewContext(map[string]any{"_x": 1}))
	if ok || err == nil {
		t.Errorf("reserved key: ok = %v, err = %v, want false with error", ok, err)
	}

	if _, err := eng.PolicyRule("no-such-policy", nil); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestEnableDisablePolicy(t *testing.T) {
	eng := newTestEngine(t)

	// context-non-empty ships disabled
	p, err := eng.GetPolicy("context-non-empty")
	if err != nil {
		t.Fatalf("GetPolicy: %v", err)
	}
	if p.Enabled {
		t.Error("context-non-empty should be disabled by default")
	}

	if err := eng.EnablePolicy("context-non-empty"); err != nil {
		t.Fatalf("EnablePolicy: %v", err)
	}

	result, err := eng.Evaluate(context.Background(), &Input{
		Instruction: &InstructionInfo{Name: "step"},
		Context:     map[string]interface{}{},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	// Warning severity does not block
	if !result.Allowed {
		t.Error("warning-severity violation should not block")
	}
	found := false
	for _, v := range result.Violations {
		if v.Policy == "context-non-empty" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected context-non-empty violation after enabling, got: %+v", result.Violations)
	}

	if err := eng.DisablePolicy("context-non-empty"); err != nil {
		t.Fatalf("DisablePolicy: %v", err)
	}

	if err := eng.EnablePolicy("no-such-policy"); err == nil {
		t.Error("expected error enabling unknown policy")
	}
}

func TestLoadPoliciesFromFile(t *testing.T) {
	eng := newTestEngine(t)

	dir := t.TempDir()
	regoSrc := `# Require a topic before research
# severity: error
package custom.policies.topic

import rego.v1

deny contains violation if {
	not input.context.topic
	violation := {
		"message": "Context must carry a 'topic' entry",
		"severity": "error",
	}
}
`
	path := filepath.Join(dir, "require-topic.rego")
	if err := os.WriteFile(path, []byte(regoSrc), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := eng.LoadPolicies(context.Background(), []string{path}); err != nil {
		t.Fatalf("LoadPolicies: %v", err)
	}

	if _, err := eng.GetPolicy("require-topic"); err != nil {
		t.Fatalf("loaded policy not registered: %v", err)
	}

	result, err := eng.Evaluate(context.Background(), &Input{
		Instruction: &InstructionInfo{Name: "research"},
		Context:     map[string]interface{}{"data": 1},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Allowed {
		t.Error("missing topic should be denied by the loaded policy")
	}

	result, err = eng.Evaluate(context.Background(), &Input{
		Instruction: &InstructionInfo{Name: "research"},
		Context:     map[string]interface{}{"topic": "quantum"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result.Allowed {
		t.Errorf("topic present should be allowed, violations: %+v", result.Violations)
	}
}

func TestReloadPolicies(t *testing.T) {
	eng := newTestEngine(t)

	builtin := len(eng.ListPolicies())

	eng.builtinPolicies = append(eng.builtinPolicies, Policy{
		Name:     "extra",
		Severity: SeverityInfo,
		Enabled:  true,
		Rego:     "package agentflow.policies.extra\n\nimport rego.v1\n",
	})

	if err := eng.ReloadPolicies(context.Background()); err != nil {
		t.Fatalf("ReloadPolicies: %v", err)
	}

	if got := len(eng.ListPolicies()); got != builtin+1 {
		t.Errorf("policies after reload = %d, want %d", got, builtin+1)
	}
}
