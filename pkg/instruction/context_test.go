package instruction

import (
	"sync"
	"testing"
)

func TestContext_GetSet(t *testing.T) {
	ec := NewContext(map[string]any{"input": "value"})

	if v, ok := ec.Get("input"); !ok || v != "value" {
		t.Errorf("Expected seeded value, got %v (present=%v)", v, ok)
	}
	ec.Set("state", "ready")
	if ec.GetString("state") != "ready" {
		t.Error("Expected set value retrievable")
	}
	if ec.GetString("missing") != "" {
		t.Error("Expected empty string for missing key")
	}
}

func TestContext_SeedMapIsCopied(t *testing.T) {
	seed := map[string]any{"x": 1}
	ec := NewContext(seed)
	seed["x"] = 2

	if v, _ := ec.Get("x"); v != 1 {
		t.Errorf("Expected context isolated from seed map, got %v", v)
	}
}

func TestContext_Merge(t *testing.T) {
	ec := NewContext(map[string]any{"a": 1, "b": 1})
	ec.Merge(map[string]any{"b": 2, "c": 3})

	if v, _ := ec.Get("a"); v != 1 {
		t.Errorf("Expected untouched key preserved, got %v", v)
	}
	if v, _ := ec.Get("b"); v != 2 {
		t.Errorf("Expected merge to overwrite, got %v", v)
	}
	if v, _ := ec.Get("c"); v != 3 {
		t.Errorf("Expected merge to add, got %v", v)
	}
}

func TestContext_SnapshotIsolation(t *testing.T) {
	ec := NewContext(map[string]any{"shared": true})
	snap := ec.Snapshot()

	snap.Set("child_only", 1)
	ec.Set("parent_only", 2)

	if _, ok := ec.Get("child_only"); ok {
		t.Error("Expected snapshot mutation invisible to original")
	}
	if _, ok := snap.Get("parent_only"); ok {
		t.Error("Expected original mutation invisible to snapshot")
	}
	if v, _ := snap.Get("shared"); v != true {
		t.Error("Expected snapshot to carry values as of snapshot time")
	}
}

func TestContext_ConcurrentAccess(t *testing.T) {
	ec := NewContext(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ec.Set("key", n)
				ec.Get("key")
				ec.Merge(map[string]any{"other": j})
				ec.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	if ec.Len() != 2 {
		t.Errorf("Expected 2 keys after concurrent writes, got %d", ec.Len())
	}
}
