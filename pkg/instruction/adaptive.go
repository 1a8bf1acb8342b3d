package instruction

import (
	"context"
	"fmt"
	"sync"
)

// AdaptationRule derives context modifications from execution feedback.
// It receives the execution context and the result of the invocation that
// just finished, and returns modifications applied to the context of the
// NEXT invocation. Rules never affect the current call's result.
type AdaptationRule func(ctx context.Context, ec *Context, prior *Result) (map[string]any, error)

// Adaptive is the feedback combinator: it executes an inner behavior, then
// applies every adaptation rule in order, accumulating their modifications
// into the starting conditions of future calls. This is the mechanism by
// which an instruction's behavior drifts based on execution feedback
// without an external learning component.
type Adaptive struct {
	Advanced
	inner Instruction
	rules []AdaptationRule

	// mu guards pending, the only state mutated across Execute calls.
	mu      sync.Mutex
	pending map[string]any
}

// NewAdaptive creates an adaptive instruction wrapping the given inner
// behavior. The inner instruction may be nil, in which case the base body
// (if set) is executed instead.
func NewAdaptive(name, description string, inner Instruction) *Adaptive {
	a := &Adaptive{
		Advanced: *NewAdvanced(name, description),
		inner:    inner,
		pending:  make(map[string]any),
	}
	a.kind = "adaptive"
	return a
}

// AddAdaptationRule appends an adaptation rule. Rules run in registration
// order after each execution.
func (a *Adaptive) AddAdaptationRule(rule AdaptationRule) {
	a.rules = append(a.rules, rule)
}

// AdaptationRuleCount returns the number of configured adaptation rules.
func (a *Adaptive) AdaptationRuleCount() int { return len(a.rules) }

// PendingAdaptations returns a copy of the accumulated modifications that
// will be applied to the next invocation's context.
func (a *Adaptive) PendingAdaptations() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]any, len(a.pending))
	for k, v := range a.pending {
		out[k] = v
	}
	return out
}

// Execute applies previously accumulated adaptations to the context, runs
// the inner behavior, then derives new adaptations from the result.
func (a *Adaptive) Execute(ctx context.Context, ec *Context) *Result {
	a.mu.Lock()
	if len(a.pending) > 0 {
		ec.Merge(a.pending)
		a.pending = make(map[string]any)
	}
	a.mu.Unlock()

	res := a.execValidated(ctx, ec, a.runInner)

	// Adaptation happens after the fact and never alters res.
	for i, rule := range a.rules {
		mods, err := applyAdaptationRule(ctx, ec, res, rule)
		if err != nil {
			a.logger.Warn().
				Str("instruction", a.name).
				Int("rule", i+1).
				Err(err).
				Msg("Adaptation rule failed")
			continue
		}
		if len(mods) > 0 {
			a.mu.Lock()
			for k, v := range mods {
				a.pending[k] = v
			}
			a.mu.Unlock()
		}
	}

	return res
}

func (a *Adaptive) runInner(ctx context.Context, ec *Context) (map[string]any, error) {
	if a.inner == nil {
		if a.body != nil {
			return a.body(ctx, ec)
		}
		return nil, nil
	}
	res := a.inner.Execute(ctx, ec)
	if res.Status == StatusFailed {
		return nil, NewCompositionError(
			"inner instruction failed: "+res.Error, nil).
			WithInstruction(a.inner.Name())
	}
	return res.Data, nil
}

// applyAdaptationRule invokes a rule, converting a panic into an error.
func applyAdaptationRule(ctx context.Context, ec *Context, prior *Result, rule AdaptationRule) (mods map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			mods = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return rule(ctx, ec, prior)
}
