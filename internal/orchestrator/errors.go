package orchestrator

import "errors"

var (
	// ErrBatchInProgress is returned by Start when the orchestrator is not
	// idle. The requester is notified; shared state is left unchanged.
	ErrBatchInProgress = errors.New("a batch is already in progress")

	// ErrNoBatchRunning is returned by Stop when there is nothing to stop.
	ErrNoBatchRunning = errors.New("no batch is running")
)
