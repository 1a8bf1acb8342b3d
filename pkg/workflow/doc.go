// Package workflow materializes step definitions into instruction trees
// and executes them as tracked runs.
//
// A Definition arrives already decoded (the HTTP layer maps request JSON
// onto Step values; there is no DSL). The Builder validates it, creates
// one agent per step through the agent factory, wraps each in an
// instruction with retry semantics, and assembles the steps under a
// sequential or parallel combinator. Each step publishes its output into
// the shared context under its step ID, so later steps can consume
// earlier results.
//
// The Runner persists a run record per execution, appends
// per-instruction events to the store through a run-scoped collector,
// and brackets the run with telemetry. Synchronous and asynchronous
// execution share the same path; async runs detach from the request
// context and are polled by run ID.
package workflow
