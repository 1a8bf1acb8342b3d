// Package instruction provides the core execution engine for AgentFlow.
//
// # Overview
//
// An instruction is a unit of work exposing a single entry point:
//
//	Execute(ctx context.Context, ec *Context) *Result
//
// Every Execute call terminates with a result carrying a terminal status;
// failures are captured at the instruction boundary and converted into
// failed results, never propagated as errors or panics to the caller.
// Callers branch on Result.Status, never on caught errors.
//
// # Instruction Kinds
//
// The engine defines a closed set of instruction kinds behind the one
// polymorphic Instruction interface:
//
//   - Base: runs a body hook and wraps the outcome into a result
//   - Advanced: adds a validation stage ahead of the body
//   - Composite: sequential combinator, context threading, fail-fast
//   - Conditional: first-match-wins predicate dispatch over branches
//   - Parallel: concurrent fan-out with wait-for-all semantics
//   - Iterative: bounded repetition of a body instruction
//   - Adaptive: mutates future invocations' context from execution feedback
//
// Combinators hold children as Instruction values and call Execute on
// them, enabling arbitrary nesting without reflection.
//
// # Context Propagation
//
// The Context type is the mapping of named values threaded through an
// instruction tree. Combinators decide copy-vs-share semantics
// explicitly: Composite shares the context and merges each child's output
// forward so later children observe earlier outputs; Parallel hands each
// child a snapshot taken at fan-out time so concurrently running siblings
// never share mutations.
//
// # Failure Aggregation
//
// Composite and Conditional wrap the first child failure. Parallel is the
// one combinator that aggregates: it waits for every launched child to
// reach a terminal state and enumerates every failure in its error.
//
// # Error Classification
//
// Failures are classified for diagnosis:
//
//   - validation: a validation rule failed or raised before the body ran
//   - execution: the instruction body failed
//   - composition: a child instruction failed inside a combinator
//
// Only programmer errors in engine configuration, such as constructing an
// Iterative with a non-positive iteration budget, surface at construction
// time.
package instruction
