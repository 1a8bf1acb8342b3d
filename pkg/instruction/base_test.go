package instruction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// countingBody returns a body that counts invocations and returns the
// given data/error.
type countingBody struct {
	mu    sync.Mutex
	calls int
	data  map[string]any
	err   error
}

func (c *countingBody) fn(ctx context.Context, ec *Context) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.data, c.err
}

func (c *countingBody) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// recordingCollector records collector callbacks for verification.
type recordingCollector struct {
	mu       sync.Mutex
	started  []string
	finished []string
	statuses []Status
}

func (r *recordingCollector) InstructionStarted(kind, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, kind+"/"+name)
}

func (r *recordingCollector) InstructionFinished(kind, name string, status Status, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, kind+"/"+name)
	r.statuses = append(r.statuses, status)
}

func TestBase_Identity(t *testing.T) {
	b := NewBase("test", "Test instruction")

	if b.Name() != "test" {
		t.Errorf("Expected name %q, got %q", "test", b.Name())
	}
	if b.Description() != "Test instruction" {
		t.Errorf("Expected description %q, got %q", "Test instruction", b.Description())
	}
	if b.ID() == "" {
		t.Error("Expected generated instruction ID")
	}

	other := NewBase("test", "Test instruction")
	if other.ID() == b.ID() {
		t.Error("Expected unique IDs for distinct instructions")
	}
}

func TestBase_Execute_Success(t *testing.T) {
	body := &countingBody{data: map[string]any{"result": "success"}}
	b := NewBase("test", "Test instruction")
	b.SetBody(body.fn)

	res := b.Execute(context.Background(), NewContext(nil))

	if res.Status != StatusCompleted {
		t.Fatalf("Expected status %s, got %s", StatusCompleted, res.Status)
	}
	if res.Data["result"] != "success" {
		t.Errorf("Expected data to carry body output, got %v", res.Data)
	}
	if res.Error != "" {
		t.Errorf("Expected empty error on success, got %q", res.Error)
	}
	if res.Metrics == nil || res.Metrics.Duration < 0 {
		t.Error("Expected metrics with non-negative duration")
	}
}

func TestBase_Execute_BodyError(t *testing.T) {
	body := &countingBody{err: errors.New("boom")}
	b := NewBase("test", "Test instruction")
	b.SetBody(body.fn)

	res := b.Execute(context.Background(), NewContext(nil))

	if res.Status != StatusFailed {
		t.Fatalf("Expected status %s, got %s", StatusFailed, res.Status)
	}
	if res.Error != "boom" {
		t.Errorf("Expected error %q, got %q", "boom", res.Error)
	}
	if res.Data != nil {
		t.Errorf("Expected nil data on failure, got %v", res.Data)
	}
}

func TestBase_Execute_BodyPanicRecovered(t *testing.T) {
	b := NewBase("panicky", "Panics")
	b.SetBody(func(ctx context.Context, ec *Context) (map[string]any, error) {
		panic("unexpected state")
	})

	// Execute must never panic past the instruction boundary.
	res := b.Execute(context.Background(), NewContext(nil))

	if res.Status != StatusFailed {
		t.Fatalf("Expected status %s, got %s", StatusFailed, res.Status)
	}
	if res.Error == "" {
		t.Error("Expected error describing the recovered panic")
	}
}

func TestBase_Execute_NilBody(t *testing.T) {
	b := NewBase("empty", "No body")

	res := b.Execute(context.Background(), NewContext(nil))

	if res.Status != StatusCompleted {
		t.Fatalf("Expected status %s, got %s", StatusCompleted, res.Status)
	}
	if len(res.Data) != 0 {
		t.Errorf("Expected empty data, got %v", res.Data)
	}
}

func TestBase_Execute_Idempotent(t *testing.T) {
	b := NewBase("pure", "Pure instruction")
	b.SetBody(func(ctx context.Context, ec *Context) (map[string]any, error) {
		v, _ := ec.Get("x")
		return map[string]any{"doubled": v.(int) * 2}, nil
	})

	ec := NewContext(map[string]any{"x": 21})
	first := b.Execute(context.Background(), ec)
	second := b.Execute(context.Background(), ec)

	if first.Status != second.Status {
		t.Errorf("Expected identical status, got %s and %s", first.Status, second.Status)
	}
	if first.Data["doubled"] != second.Data["doubled"] {
		t.Errorf("Expected identical data, got %v and %v", first.Data, second.Data)
	}
}

func TestBase_Execute_CollectorObservations(t *testing.T) {
	collector := &recordingCollector{}
	b := NewBase("observed", "Observed instruction")
	b.SetCollector(collector)

	b.Execute(context.Background(), NewContext(nil))

	if len(collector.started) != 1 || collector.started[0] != "base/observed" {
		t.Errorf("Expected one started observation, got %v", collector.started)
	}
	if len(collector.finished) != 1 {
		t.Fatalf("Expected one finished observation, got %v", collector.finished)
	}
	if collector.statuses[0] != StatusCompleted {
		t.Errorf("Expected completed status observation, got %s", collector.statuses[0])
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusPending, false},
		{StatusRunning, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Errorf("Status %s: expected IsTerminal=%v, got %v", tt.status, tt.terminal, got)
		}
	}
}

func TestStatus_Validate(t *testing.T) {
	if err := StatusCompleted.Validate(); err != nil {
		t.Errorf("Expected valid status, got error: %v", err)
	}
	if err := Status("bogus").Validate(); err == nil {
		t.Error("Expected error for invalid status")
	}
}
