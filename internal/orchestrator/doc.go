// Package orchestrator owns the batch lifecycle of the server.
//
// One batch runs at a time through the phases Idle, Running, and Stopping.
// The orchestrator submits discovered images to the worker pool, consumes
// completions in finish order, updates progress counters, fans events out
// to connected clients, and computes aggregate speedup and efficiency
// metrics when a batch drains without being cancelled.
//
// Cancellation is cooperative and best-effort: stopping prevents unstarted
// tasks from running and suppresses the final metrics, but tasks already
// executing on a worker finish normally and their late results are
// discarded rather than broadcast.
package orchestrator
