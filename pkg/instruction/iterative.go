package instruction

import (
	"context"
	"fmt"
)

// FailurePolicy controls how an iterative instruction reacts to a failed
// iteration.
type FailurePolicy string

const (
	// FailureStop terminates the loop at the first failed iteration and
	// fails the whole instruction. This is the default.
	FailureStop FailurePolicy = "stop"

	// FailureRetry tolerates failed iterations and keeps repeating up to
	// the iteration budget; the budget bounds retry-style repetition.
	FailureRetry FailurePolicy = "retry"
)

// ContinueFunc is an optional convergence hook. It is consulted after
// each successful iteration; returning false stops the loop before the
// iteration budget is reached.
type ContinueFunc func(iteration int, last *Result, ec *Context) bool

// Iterative is the loop combinator: it repeats a body instruction under a
// bounded iteration budget. The result data exposes the number of
// iterations actually performed and the terminal iteration's output.
type Iterative struct {
	Advanced
	body          Instruction
	maxIterations int
	continueFn    ContinueFunc
	failurePolicy FailurePolicy
}

// NewIterative creates an iterative instruction. A non-positive iteration
// budget is a programmer error and is rejected at construction time.
// The body may be nil, in which case each iteration is a no-op success.
func NewIterative(name, description string, body Instruction, maxIterations int) (*Iterative, error) {
	if maxIterations <= 0 {
		return nil, fmt.Errorf("max iterations must be positive, got %d", maxIterations)
	}
	it := &Iterative{
		Advanced:      *NewAdvanced(name, description),
		body:          body,
		maxIterations: maxIterations,
		failurePolicy: FailureStop,
	}
	it.kind = "iterative"
	return it, nil
}

// MaxIterations returns the configured iteration budget.
func (it *Iterative) MaxIterations() int { return it.maxIterations }

// SetContinueFunc installs a convergence hook consulted after each
// successful iteration.
func (it *Iterative) SetContinueFunc(fn ContinueFunc) { it.continueFn = fn }

// SetFailurePolicy configures how failed iterations are handled.
func (it *Iterative) SetFailurePolicy(policy FailurePolicy) { it.failurePolicy = policy }

// Execute validates the context, then runs the iteration loop.
func (it *Iterative) Execute(ctx context.Context, ec *Context) *Result {
	var performed int
	res := it.execValidated(ctx, ec, func(ctx context.Context, ec *Context) (map[string]any, error) {
		return it.iterate(ctx, ec, &performed)
	})
	if res.Metrics != nil {
		res.Metrics.Iterations = performed
	}
	return res
}

func (it *Iterative) iterate(ctx context.Context, ec *Context, performed *int) (map[string]any, error) {
	var last *Result
	var lastFailure *Result

	for i := 1; i <= it.maxIterations; i++ {
		var res *Result
		if it.body != nil {
			res = it.body.Execute(ctx, ec)
		} else {
			res = Completed(nil)
		}
		*performed = i

		if res.Status == StatusFailed {
			if it.failurePolicy == FailureStop {
				return nil, NewCompositionError(
					fmt.Sprintf("iteration %d failed: %s", i, res.Error), nil).
					WithInstruction(it.name)
			}
			lastFailure = res
			continue
		}

		lastFailure = nil
		last = res
		ec.Merge(res.Data)

		if it.continueFn != nil && !it.continueFn(i, res, ec) {
			break
		}
	}

	// Under the retry policy a budget exhausted by failures still fails
	// the instruction.
	if last == nil && lastFailure != nil {
		return nil, NewCompositionError(
			fmt.Sprintf("all %d iterations failed, last error: %s", *performed, lastFailure.Error), nil).
			WithInstruction(it.name)
	}

	var output map[string]any
	if last != nil {
		output = last.Data
	}
	return map[string]any{
		"iterations": *performed,
		"output":     output,
	}, nil
}
