package instruction

import (
	"context"
	"fmt"
	"strings"
)

// ValidationRule is a predicate over the execution context gating whether
// an instruction's body may run. Rules run in registration order and
// validation fails at the first rule returning false or an error.
type ValidationRule func(ctx context.Context, ec *Context) (bool, error)

// Advanced extends Base with a pluggable validation stage that runs ahead
// of the body. If validation fails, the body is never invoked and the
// result is a failure built from the joined violations. A rule that
// raises is treated as a validation failure rather than propagated;
// validation is never allowed to crash the caller.
type Advanced struct {
	Base
	rules []ValidationRule
}

// NewAdvanced creates an advanced instruction with the given identity.
func NewAdvanced(name, description string) *Advanced {
	a := &Advanced{Base: *NewBase(name, description)}
	a.kind = "advanced"
	return a
}

// AddValidationRule appends a validation rule. Rules are configured at
// assembly time, before the first Execute call.
func (a *Advanced) AddValidationRule(rule ValidationRule) {
	a.rules = append(a.rules, rule)
}

// ValidationRuleCount returns the number of configured validation rules.
func (a *Advanced) ValidationRuleCount() int { return len(a.rules) }

// Validate runs the configured rules in order and reports the first
// blocking violation. An empty rule set validates successfully.
func (a *Advanced) Validate(ctx context.Context, ec *Context) ValidationResult {
	for i, rule := range a.rules {
		ok, err := applyRule(ctx, ec, rule)
		if err != nil {
			return ValidationResult{
				Valid:      false,
				Score:      0,
				Violations: []string{fmt.Sprintf("validation rule %d raised: %v", i+1, err)},
			}
		}
		if !ok {
			return ValidationResult{
				Valid:      false,
				Score:      0,
				Violations: []string{fmt.Sprintf("validation rule %d failed", i+1)},
			}
		}
	}
	return ValidationResult{Valid: true, Score: 1}
}

// applyRule invokes a single rule, converting a panic into an error.
func applyRule(ctx context.Context, ec *Context, rule ValidationRule) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return rule(ctx, ec)
}

// Execute validates the context and, if valid, runs the instruction body.
func (a *Advanced) Execute(ctx context.Context, ec *Context) *Result {
	return a.execValidated(ctx, ec, a.body)
}

// execValidated is the shared validate-then-run path used by Advanced and
// by every combinator built on top of it.
func (a *Advanced) execValidated(ctx context.Context, ec *Context, body BodyFunc) *Result {
	vr := a.Validate(ctx, ec)
	if !vr.Valid {
		m := startMetrics()
		if a.collector != nil {
			a.collector.InstructionStarted(a.kind, a.name)
		}
		err := NewValidationError(
			fmt.Sprintf("validation failed: %s", strings.Join(vr.Violations, "; ")), nil).
			WithInstruction(a.name)
		res := Failed(err.Error())
		res.Metrics = m.finish()
		if a.collector != nil {
			a.collector.InstructionFinished(a.kind, a.name, res.Status, res.Metrics.Duration)
		}
		a.logger.Debug().
			Str("instruction", a.name).
			Strs("violations", vr.Violations).
			Msg("Validation failed")
		return res
	}
	return a.run(ctx, ec, body)
}
