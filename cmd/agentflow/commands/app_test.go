package commands

import (
	"context"
	"testing"

	"github.com/agentflow/agentflow/pkg/agent"
	"github.com/agentflow/agentflow/pkg/instruction"
)

func sampleRows() []any {
	return []any{
		[]any{1.0, 10.0},
		[]any{2.0, 20.0},
		[]any{3.0, 30.0},
		[]any{100.0, 400.0},
		[]any{4.0, 50.0},
		[]any{5.0, 60.0},
		[]any{6.0, 70.0},
	}
}

func TestDataScienceBuilderDefaultsToClustering(t *testing.T) {
	inst, err := dataprocBuilder(agent.Config{Name: "ds", Type: agent.TypeDataScience})
	if err != nil {
		t.Fatalf("dataprocBuilder: %v", err)
	}

	ec := instruction.NewContext(map[string]any{"data": sampleRows()})
	res := inst.Execute(context.Background(), ec)
	if res.Status != instruction.StatusCompleted {
		t.Fatalf("status = %s, error = %s", res.Status, res.Error)
	}
	if _, ok := res.Data["clusters"]; !ok {
		t.Errorf("expected clustering output, got %v", res.Data)
	}
}

func TestDataScienceBuilderSelectsTransformPipeline(t *testing.T) {
	cfg := agent.Config{
		Name: "ds",
		Type: agent.TypeDataScience,
		DomainConfig: map[string]any{
			"strategies": []any{
				map[string]any{"strategy": "outlier_removal", "method": "z_score", "threshold": 2.0},
				map[string]any{"strategy": "feature_engineering", "method": "polynomial", "degree": 2.0},
			},
		},
	}

	inst, err := dataprocBuilder(cfg)
	if err != nil {
		t.Fatalf("dataprocBuilder: %v", err)
	}

	ec := instruction.NewContext(map[string]any{"data": sampleRows()})
	res := inst.Execute(context.Background(), ec)
	if res.Status != instruction.StatusCompleted {
		t.Fatalf("status = %s, error = %s", res.Status, res.Error)
	}

	transformed, ok := res.Data["transformed_data"].([][]float64)
	if !ok {
		t.Fatalf("transformed_data missing: %v", res.Data)
	}
	if len(transformed) >= 7 || len(transformed[0]) <= 2 {
		t.Errorf("dims = %dx%d, want rows trimmed and features appended",
			len(transformed), len(transformed[0]))
	}
}

func TestDataScienceBuilderRejectsBadStrategies(t *testing.T) {
	cfg := agent.Config{
		Name: "ds",
		Type: agent.TypeDataScience,
		DomainConfig: map[string]any{
			"strategies": []any{map[string]any{"strategy": "teleport"}},
		},
	}
	if _, err := dataprocBuilder(cfg); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
