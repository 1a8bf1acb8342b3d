package instruction

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Parallel is the fan-out/fan-in combinator: it launches every child's
// Execute concurrently and waits for all of them to reach a terminal
// state. A slow or failing child does not cancel its siblings. Each child
// receives a snapshot of the context taken at fan-out time, so mutations
// are not shared between concurrently running siblings.
//
// If any child fails, the whole instruction fails with an error that
// enumerates every failure, not just the first. On success the data is
// {"results": [...]} with each child's output in launch order, regardless
// of completion order.
type Parallel struct {
	Advanced
	children    []Instruction
	maxParallel int
}

// NewParallel creates a parallel instruction with the given identity.
func NewParallel(name, description string) *Parallel {
	p := &Parallel{Advanced: *NewAdvanced(name, description)}
	p.kind = "parallel"
	return p
}

// SetChildren replaces the ordered child instruction list.
func (p *Parallel) SetChildren(children []Instruction) {
	p.children = children
}

// AddChild appends a child instruction.
func (p *Parallel) AddChild(child Instruction) {
	p.children = append(p.children, child)
}

// Children returns the ordered child instruction list.
func (p *Parallel) Children() []Instruction { return p.children }

// SetMaxParallel bounds the number of children executing concurrently.
// Zero or negative means no bound: every child gets its own worker.
func (p *Parallel) SetMaxParallel(n int) { p.maxParallel = n }

// Execute validates the context, then fans out the children.
func (p *Parallel) Execute(ctx context.Context, ec *Context) *Result {
	var ran int
	res := p.execValidated(ctx, ec, func(ctx context.Context, ec *Context) (map[string]any, error) {
		return p.fanOut(ctx, ec, &ran)
	})
	if res.Metrics != nil {
		res.Metrics.ChildrenRun = ran
	}
	return res
}

func (p *Parallel) fanOut(ctx context.Context, ec *Context, ran *int) (map[string]any, error) {
	n := len(p.children)
	if n == 0 {
		return map[string]any{"results": []map[string]any{}}, nil
	}

	workerCount := p.maxParallel
	if workerCount <= 0 || workerCount > n {
		workerCount = n
	}

	// Results are correlated back to their originating child by launch
	// index, not by completion order.
	results := make([]*Result, n)

	workQueue := make(chan int, n)
	for i := 0; i < n; i++ {
		workQueue <- i
	}
	close(workQueue)

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workQueue {
				// Each child observes the context as of fan-out time.
				results[i] = p.children[i].Execute(ctx, ec.Snapshot())
			}
		}()
	}
	wg.Wait()
	*ran = n

	// Partition outcomes after every child has reached a terminal state.
	var failures []string
	data := make([]map[string]any, 0, n)
	for i, res := range results {
		if res.Status == StatusFailed {
			failures = append(failures, fmt.Sprintf("%s: %s", p.children[i].Name(), res.Error))
			continue
		}
		data = append(data, res.Data)
	}

	if len(failures) > 0 {
		return nil, NewCompositionError(
			fmt.Sprintf("%d of %d child instructions failed: %s",
				len(failures), n, strings.Join(failures, "; ")), nil).
			WithInstruction(p.name)
	}
	return map[string]any{"results": data}, nil
}
