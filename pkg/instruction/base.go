package instruction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Instruction is a unit of work exposing a single polymorphic entry point.
// Combinators hold children as this interface and call Execute on them,
// never their internal hooks, so the uniform status/error contract holds
// recursively at every level of an instruction tree.
type Instruction interface {
	// ID returns the generated unique identifier of the instruction.
	ID() string

	// Name returns the instruction name.
	Name() string

	// Description returns the human-readable description.
	Description() string

	// Execute runs the instruction against the given execution context and
	// returns a result with a terminal status. Execute never panics and
	// never returns an error: every failure is captured and converted into
	// a failed result at the instruction boundary.
	Execute(ctx context.Context, ec *Context) *Result
}

// BodyFunc is the overridable execution body of an instruction. A nil
// return mapping is treated as an empty successful output.
type BodyFunc func(ctx context.Context, ec *Context) (map[string]any, error)

// Collector receives execution observations from instructions.
// Implementations are expected to be safe for concurrent use.
// The telemetry package provides a Prometheus-backed implementation.
type Collector interface {
	// InstructionStarted is called when an instruction begins executing.
	InstructionStarted(kind, name string)

	// InstructionFinished is called when an instruction reaches a terminal
	// status.
	InstructionFinished(kind, name string, status Status, duration time.Duration)
}

// Base provides the fundamental execution contract shared by every
// instruction kind: run the body, capture any failure, and wrap the
// outcome into a result. Base retains no mutable execution state between
// calls; each Execute call produces a fresh result.
type Base struct {
	id          string
	name        string
	description string
	kind        string
	body        BodyFunc
	logger      zerolog.Logger
	collector   Collector
}

// NewBase creates a base instruction with the given identity.
func NewBase(name, description string) *Base {
	return &Base{
		id:          uuid.New().String(),
		name:        name,
		description: description,
		kind:        "base",
		logger:      zerolog.Nop(),
	}
}

// ID returns the generated unique identifier of the instruction.
func (b *Base) ID() string { return b.id }

// Name returns the instruction name.
func (b *Base) Name() string { return b.name }

// Description returns the human-readable description.
func (b *Base) Description() string { return b.description }

// Kind returns the instruction kind, used for observability labels.
func (b *Base) Kind() string { return b.kind }

// SetBody sets the execution body. Configuration happens at assembly
// time, before the first Execute call.
func (b *Base) SetBody(body BodyFunc) { b.body = body }

// SetLogger attaches a logger. Instructions log at debug level only.
func (b *Base) SetLogger(logger zerolog.Logger) { b.logger = logger }

// SetCollector attaches an execution collector. A nil collector disables
// observation.
func (b *Base) SetCollector(c Collector) { b.collector = c }

// Execute runs the instruction body and wraps the outcome into a result.
func (b *Base) Execute(ctx context.Context, ec *Context) *Result {
	return b.run(ctx, ec, b.body)
}

// run is the uniform execution wrapper shared by all instruction kinds:
// it marks the logical Running state, invokes the body, and converts the
// outcome into a terminal result. Panics from the body are recovered and
// converted; no failure propagates past this boundary.
func (b *Base) run(ctx context.Context, ec *Context, body BodyFunc) (res *Result) {
	m := startMetrics()
	if b.collector != nil {
		b.collector.InstructionStarted(b.kind, b.name)
	}
	b.logger.Debug().
		Str("instruction", b.name).
		Str("kind", b.kind).
		Msg("Executing instruction")

	defer func() {
		if r := recover(); r != nil {
			err := NewExecutionError(fmt.Sprintf("panic: %v", r), nil).WithInstruction(b.name)
			res = Failed(err.Error())
			res.Metrics = m.finish()
		}
		if b.collector != nil {
			b.collector.InstructionFinished(b.kind, b.name, res.Status, res.Metrics.Duration)
		}
		b.logger.Debug().
			Str("instruction", b.name).
			Str("status", string(res.Status)).
			Dur("duration", res.Metrics.Duration).
			Msg("Instruction finished")
	}()

	if body == nil {
		res = Completed(nil)
		res.Metrics = m.finish()
		return res
	}

	data, err := body(ctx, ec)
	if err != nil {
		res = Failed(err.Error())
	} else {
		res = Completed(data)
	}
	res.Metrics = m.finish()
	return res
}
