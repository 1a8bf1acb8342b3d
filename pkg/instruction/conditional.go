package instruction

import (
	"context"
	"fmt"
)

// Predicate is a condition over the execution context used to select a
// conditional branch.
type Predicate func(ctx context.Context, ec *Context) (bool, error)

// PredicateErrorPolicy controls what happens when a predicate itself
// raises during branch selection.
type PredicateErrorPolicy string

const (
	// PredicateErrorAbort aborts branch evaluation and fails the
	// conditional instruction. This is the default, consistent with how
	// validation rules treat a raised error as a failure.
	PredicateErrorAbort PredicateErrorPolicy = "abort"

	// PredicateErrorSkip treats a raised predicate as non-matching and
	// moves on to the next branch.
	PredicateErrorSkip PredicateErrorPolicy = "skip"
)

type branch struct {
	pred  Predicate
	instr Instruction
}

// Conditional is the branch combinator: it evaluates predicates over the
// context in registration order and executes the first matching branch.
// At most one branch executes per call; mutual exclusivity is a
// correctness invariant. If no predicate matches, the instruction fails.
type Conditional struct {
	Advanced
	branches    []branch
	errorPolicy PredicateErrorPolicy
}

// NewConditional creates a conditional instruction with the given identity.
func NewConditional(name, description string) *Conditional {
	c := &Conditional{
		Advanced:    *NewAdvanced(name, description),
		errorPolicy: PredicateErrorAbort,
	}
	c.kind = "conditional"
	return c
}

// AddCondition registers a (predicate, instruction) pair. Pairs are
// evaluated in registration order; the first predicate returning true
// selects its instruction.
func (c *Conditional) AddCondition(pred Predicate, instr Instruction) {
	c.branches = append(c.branches, branch{pred: pred, instr: instr})
}

// SetPredicateErrorPolicy configures the behavior when a predicate
// raises during evaluation.
func (c *Conditional) SetPredicateErrorPolicy(policy PredicateErrorPolicy) {
	c.errorPolicy = policy
}

// ConditionCount returns the number of registered branches.
func (c *Conditional) ConditionCount() int { return len(c.branches) }

// Execute validates the context, then dispatches to the first matching
// branch.
func (c *Conditional) Execute(ctx context.Context, ec *Context) *Result {
	return c.execValidated(ctx, ec, c.dispatch)
}

func (c *Conditional) dispatch(ctx context.Context, ec *Context) (map[string]any, error) {
	for i, br := range c.branches {
		matched, err := evalPredicate(ctx, ec, br.pred)
		if err != nil {
			if c.errorPolicy == PredicateErrorSkip {
				c.logger.Debug().
					Str("instruction", c.name).
					Int("condition", i+1).
					Err(err).
					Msg("Predicate raised, skipping branch")
				continue
			}
			return nil, NewExecutionError(
				fmt.Sprintf("condition %d raised: %v", i+1, err), nil).
				WithInstruction(c.name)
		}
		if !matched {
			continue
		}
		res := br.instr.Execute(ctx, ec)
		if res.Status == StatusFailed {
			return nil, NewCompositionError(
				"branch instruction failed: "+res.Error, nil).
				WithInstruction(br.instr.Name())
		}
		return map[string]any{"result": res.Data}, nil
	}
	return nil, NewExecutionError("no matching condition found", nil).WithInstruction(c.name)
}

// evalPredicate invokes a predicate, converting a panic into an error.
func evalPredicate(ctx context.Context, ec *Context, pred Predicate) (matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			matched = false
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return pred(ctx, ec)
}
