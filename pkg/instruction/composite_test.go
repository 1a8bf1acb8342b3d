package instruction

import (
	"context"
	"strings"
	"testing"
)

func newLeaf(name string, data map[string]any) *Advanced {
	leaf := NewAdvanced(name, name+" instruction")
	leaf.SetBody(func(ctx context.Context, ec *Context) (map[string]any, error) {
		return data, nil
	})
	return leaf
}

func newFailingLeaf(name, errMsg string) *Advanced {
	leaf := NewAdvanced(name, name+" instruction")
	leaf.SetBody(func(ctx context.Context, ec *Context) (map[string]any, error) {
		return nil, NewExecutionError(errMsg, nil)
	})
	return leaf
}

func TestComposite_Execute_SequentialSuccess(t *testing.T) {
	var observed any
	first := newLeaf("part1", map[string]any{"from_part1": 42})
	second := NewAdvanced("part2", "Part 2")
	second.SetBody(func(ctx context.Context, ec *Context) (map[string]any, error) {
		observed, _ = ec.Get("from_part1")
		return map[string]any{"from_part2": "done"}, nil
	})

	comp := NewComposite("composite", "Composite instruction")
	comp.SetChildren([]Instruction{first, second})

	res := comp.Execute(context.Background(), NewContext(nil))

	if res.Status != StatusCompleted {
		t.Fatalf("Expected status %s, got %s: %s", StatusCompleted, res.Status, res.Error)
	}
	if observed != 42 {
		t.Errorf("Expected second child to observe first child's output, got %v", observed)
	}
	results, ok := res.Data["results"].([]map[string]any)
	if !ok {
		t.Fatalf("Expected results list in data, got %v", res.Data)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 child results, got %d", len(results))
	}
	if res.Metrics.ChildrenRun != 2 {
		t.Errorf("Expected 2 children run, got %d", res.Metrics.ChildrenRun)
	}
}

func TestComposite_Execute_FailFast(t *testing.T) {
	first := newFailingLeaf("part1", "simulated error in part1")
	second := NewAdvanced("part2", "Part 2")
	body := &countingBody{}
	second.SetBody(body.fn)

	comp := NewComposite("composite", "Composite instruction")
	comp.SetChildren([]Instruction{first, second})

	res := comp.Execute(context.Background(), NewContext(nil))

	if res.Status != StatusFailed {
		t.Fatalf("Expected status %s, got %s", StatusFailed, res.Status)
	}
	if body.count() != 0 {
		t.Error("Expected remaining children aborted after first failure")
	}
	if !strings.Contains(res.Error, "part1") {
		t.Errorf("Expected error to name the offending child, got %q", res.Error)
	}
	if !strings.Contains(res.Error, "simulated error in part1") {
		t.Errorf("Expected error to carry the child's error, got %q", res.Error)
	}
}

func TestComposite_Execute_Empty(t *testing.T) {
	comp := NewComposite("composite", "Composite instruction")

	res := comp.Execute(context.Background(), NewContext(nil))

	if res.Status != StatusCompleted {
		t.Fatalf("Expected status %s, got %s", StatusCompleted, res.Status)
	}
}

func TestComposite_Execute_ContextThreading(t *testing.T) {
	// Three children, each incrementing a counter left by the previous one.
	makeStep := func(name string) *Advanced {
		step := NewAdvanced(name, "")
		step.SetBody(func(ctx context.Context, ec *Context) (map[string]any, error) {
			n := 0
			if v, ok := ec.Get("counter"); ok {
				n = v.(int)
			}
			return map[string]any{"counter": n + 1}, nil
		})
		return step
	}

	comp := NewComposite("chain", "Counting chain")
	comp.SetChildren([]Instruction{makeStep("s1"), makeStep("s2"), makeStep("s3")})

	ec := NewContext(nil)
	res := comp.Execute(context.Background(), ec)

	if res.Status != StatusCompleted {
		t.Fatalf("Expected status %s, got %s", StatusCompleted, res.Status)
	}
	if v, _ := ec.Get("counter"); v != 3 {
		t.Errorf("Expected counter threaded to 3, got %v", v)
	}
}

// End-to-end: a composite of two advanced instructions where the second's
// validation rule always fails must fail overall with an error mentioning
// the second instruction's name.
func TestComposite_Execute_ValidationFailureInSecondChild(t *testing.T) {
	first := newLeaf("healthy", map[string]any{"ok": true})
	second := NewAdvanced("strict", "Always-invalid instruction")
	second.AddValidationRule(func(ctx context.Context, ec *Context) (bool, error) {
		return false, nil
	})
	body := &countingBody{}
	second.SetBody(body.fn)

	comp := NewComposite("pipeline", "Two-stage pipeline")
	comp.SetChildren([]Instruction{first, second})

	res := comp.Execute(context.Background(), NewContext(nil))

	if res.Status != StatusFailed {
		t.Fatalf("Expected status %s, got %s", StatusFailed, res.Status)
	}
	if !strings.Contains(res.Error, "strict") {
		t.Errorf("Expected error to mention the second instruction's name, got %q", res.Error)
	}
	if body.count() != 0 {
		t.Error("Expected the invalid child's body never to run")
	}
}
