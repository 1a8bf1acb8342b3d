package instruction

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestConditional_Execute_FirstMatchWins(t *testing.T) {
	skipped := &countingBody{}
	x := NewAdvanced("x", "Never matched")
	x.SetBody(skipped.fn)
	taken := &countingBody{data: map[string]any{"branch": "y"}}
	y := NewAdvanced("y", "Matched branch")
	y.SetBody(taken.fn)

	cond := NewConditional("conditional", "Conditional instruction")
	cond.AddCondition(func(ctx context.Context, ec *Context) (bool, error) {
		return false, nil
	}, x)
	cond.AddCondition(func(ctx context.Context, ec *Context) (bool, error) {
		return true, nil
	}, y)

	res := cond.Execute(context.Background(), NewContext(nil))

	if res.Status != StatusCompleted {
		t.Fatalf("Expected status %s, got %s: %s", StatusCompleted, res.Status, res.Error)
	}
	if skipped.count() != 0 {
		t.Error("Expected non-matching branch never executed")
	}
	if taken.count() != 1 {
		t.Errorf("Expected matching branch executed once, ran %d times", taken.count())
	}
	result, ok := res.Data["result"].(map[string]any)
	if !ok {
		t.Fatalf("Expected branch data wrapped under result, got %v", res.Data)
	}
	if result["branch"] != "y" {
		t.Errorf("Expected branch y data, got %v", result)
	}
}

func TestConditional_Execute_NoMatch(t *testing.T) {
	cond := NewConditional("conditional", "Conditional instruction")
	cond.AddCondition(func(ctx context.Context, ec *Context) (bool, error) {
		return false, nil
	}, newLeaf("x", nil))
	cond.AddCondition(func(ctx context.Context, ec *Context) (bool, error) {
		return false, nil
	}, newLeaf("y", nil))

	res := cond.Execute(context.Background(), NewContext(nil))

	if res.Status != StatusFailed {
		t.Fatalf("Expected status %s, got %s", StatusFailed, res.Status)
	}
	if !strings.Contains(res.Error, "no matching condition") {
		t.Errorf("Expected no-matching-condition error, got %q", res.Error)
	}
}

func TestConditional_Execute_PredicateErrorAborts(t *testing.T) {
	fallback := &countingBody{}
	y := NewAdvanced("y", "Fallback branch")
	y.SetBody(fallback.fn)

	cond := NewConditional("conditional", "Conditional instruction")
	cond.AddCondition(func(ctx context.Context, ec *Context) (bool, error) {
		return false, errors.New("predicate exploded")
	}, newLeaf("x", nil))
	cond.AddCondition(func(ctx context.Context, ec *Context) (bool, error) {
		return true, nil
	}, y)

	res := cond.Execute(context.Background(), NewContext(nil))

	// Default policy: abort, do not silently skip to the next predicate.
	if res.Status != StatusFailed {
		t.Fatalf("Expected status %s, got %s", StatusFailed, res.Status)
	}
	if !strings.Contains(res.Error, "predicate exploded") {
		t.Errorf("Expected predicate error surfaced, got %q", res.Error)
	}
	if fallback.count() != 0 {
		t.Error("Expected later branches not evaluated after a predicate error")
	}
}

func TestConditional_Execute_PredicateErrorSkipPolicy(t *testing.T) {
	taken := &countingBody{data: map[string]any{"branch": "y"}}
	y := NewAdvanced("y", "Fallback branch")
	y.SetBody(taken.fn)

	cond := NewConditional("conditional", "Conditional instruction")
	cond.SetPredicateErrorPolicy(PredicateErrorSkip)
	cond.AddCondition(func(ctx context.Context, ec *Context) (bool, error) {
		return false, errors.New("predicate exploded")
	}, newLeaf("x", nil))
	cond.AddCondition(func(ctx context.Context, ec *Context) (bool, error) {
		return true, nil
	}, y)

	res := cond.Execute(context.Background(), NewContext(nil))

	if res.Status != StatusCompleted {
		t.Fatalf("Expected status %s under skip policy, got %s: %s", StatusCompleted, res.Status, res.Error)
	}
	if taken.count() != 1 {
		t.Errorf("Expected fallback branch executed once, ran %d times", taken.count())
	}
}

func TestConditional_Execute_FailedBranchSurfaces(t *testing.T) {
	cond := NewConditional("conditional", "Conditional instruction")
	cond.AddCondition(func(ctx context.Context, ec *Context) (bool, error) {
		return true, nil
	}, newFailingLeaf("broken", "branch boom"))

	res := cond.Execute(context.Background(), NewContext(nil))

	if res.Status != StatusFailed {
		t.Fatalf("Expected status %s, got %s", StatusFailed, res.Status)
	}
	if !strings.Contains(res.Error, "broken") || !strings.Contains(res.Error, "branch boom") {
		t.Errorf("Expected error naming the branch and its error, got %q", res.Error)
	}
}
