// Package server exposes the workflow engine over HTTP. Requests carry
// a workflow definition and input data; the server materializes and
// executes them through the workflow runner, synchronously or
// asynchronously, and serves run status, run events, health, and
// Prometheus metrics. Definition validation failures map to 422.
package server
