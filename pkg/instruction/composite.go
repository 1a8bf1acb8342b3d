package instruction

import (
	"context"
)

// Composite is the sequential combinator: it executes child instructions
// strictly in order, merging each child's output into the shared context
// so later children observe earlier children's results. Execution is
// fail-fast: the first failing child aborts the remaining children and
// fails the composite with an error naming the offending child. No
// rollback of earlier children's side effects is performed.
type Composite struct {
	Advanced
	children []Instruction
}

// NewComposite creates a composite instruction with the given identity.
func NewComposite(name, description string) *Composite {
	c := &Composite{Advanced: *NewAdvanced(name, description)}
	c.kind = "composite"
	return c
}

// SetChildren replaces the ordered child instruction list.
func (c *Composite) SetChildren(children []Instruction) {
	c.children = children
}

// AddChild appends a child instruction.
func (c *Composite) AddChild(child Instruction) {
	c.children = append(c.children, child)
}

// Children returns the ordered child instruction list.
func (c *Composite) Children() []Instruction { return c.children }

// Execute validates the context, then runs the children in order.
func (c *Composite) Execute(ctx context.Context, ec *Context) *Result {
	var ran int
	res := c.execValidated(ctx, ec, func(ctx context.Context, ec *Context) (map[string]any, error) {
		return c.runChildren(ctx, ec, &ran)
	})
	if res.Metrics != nil {
		res.Metrics.ChildrenRun = ran
	}
	return res
}

func (c *Composite) runChildren(ctx context.Context, ec *Context, ran *int) (map[string]any, error) {
	results := make([]map[string]any, 0, len(c.children))
	for _, child := range c.children {
		res := child.Execute(ctx, ec)
		*ran++
		if res.Status == StatusFailed {
			return nil, NewCompositionError(
				"child instruction failed: "+res.Error, nil).
				WithInstruction(child.Name())
		}
		// Later children observe earlier children's outputs.
		ec.Merge(res.Data)
		results = append(results, res.Data)
	}
	return map[string]any{"results": results}, nil
}
