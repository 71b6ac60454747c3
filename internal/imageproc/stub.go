package imageproc

import (
	"path/filepath"
	"time"
)

// Stub is a Processor that performs no image work. It is selected at
// startup when real processing is disabled and produces a synthetic failure
// Result per task after the configured delay, which keeps the rest of the
// pipeline (progress, logs, metrics accounting) exercisable end to end.
type Stub struct {
	// Delay is how long each Process call takes. Zero means return
	// immediately, which is what tests want.
	Delay time.Duration
}

// Process sleeps for the configured delay and reports a failure without
// touching the filesystem.
func (s Stub) Process(inputPath, _ string, _ []Operation) Result {
	start := time.Now()

	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}

	return Result{
		File:        filepath.Base(inputPath),
		Success:     false,
		TimeSeconds: time.Since(start).Seconds(),
		Err:         "image processing disabled",
	}
}
