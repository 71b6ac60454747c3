package orchestrator_test

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/morenoc/imagemill/internal/imageproc"
	"github.com/morenoc/imagemill/internal/orchestrator"
	"github.com/morenoc/imagemill/internal/protocol"
)

// captureBroadcaster records every broadcast event and republishes it on a
// channel for tests to wait on.
type captureBroadcaster struct {
	mu     sync.Mutex
	events []protocol.ServerEnvelope
	ch     chan protocol.ServerEnvelope
}

func newCaptureBroadcaster() *captureBroadcaster {
	return &captureBroadcaster{ch: make(chan protocol.ServerEnvelope, 1024)}
}

func (b *captureBroadcaster) Broadcast(msg []byte) {
	var env protocol.ServerEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return
	}

	b.mu.Lock()
	b.events = append(b.events, env)
	b.mu.Unlock()

	b.ch <- env
}

// waitFor consumes events until match returns true or the timeout expires.
func (b *captureBroadcaster) waitFor(
	t *testing.T,
	match func(protocol.ServerEnvelope) bool,
) {
	t.Helper()

	timeout := time.After(5 * time.Second)

	for {
		select {
		case env := <-b.ch:
			if match(env) {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for event")
		}
	}
}

func (b *captureBroadcaster) snapshot() []protocol.ServerEnvelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]protocol.ServerEnvelope(nil), b.events...)
}

func isStatus(state string) func(protocol.ServerEnvelope) bool {
	return func(env protocol.ServerEnvelope) bool {
		if env.Type != protocol.TypeStatus {
			return false
		}

		var status protocol.Status
		if err := json.Unmarshal(env.Data, &status); err != nil {
			return false
		}

		return status.State == state
	}
}

// fakeProcessor delegates to a function so tests control timing and
// per-task outcomes.
type fakeProcessor struct {
	fn func(inputPath string) imageproc.Result
}

func (p fakeProcessor) Process(
	inputPath, _ string,
	_ []imageproc.Operation,
) imageproc.Result {
	return p.fn(inputPath)
}

func succeedExcept(failName string) fakeProcessor {
	return fakeProcessor{fn: func(inputPath string) imageproc.Result {
		name := filepath.Base(inputPath)

		if name == failName {
			return imageproc.Result{
				File:        name,
				Success:     false,
				TimeSeconds: 0.001,
				Err:         "decode failed",
			}
		}

		return imageproc.Result{
			File:        name,
			Success:     true,
			TimeSeconds: 0.1,
		}
	}}
}

func makeInputDir(t *testing.T, names ...string) string {
	t.Helper()

	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("failed to create input file: '%v'", err)
		}
	}

	return dir
}

func newTestOrchestrator(
	t *testing.T,
	inputDir string,
	proc imageproc.Processor,
) (*orchestrator.Orchestrator, *captureBroadcaster) {
	t.Helper()

	broadcaster := newCaptureBroadcaster()

	orch := orchestrator.New(orchestrator.Config{
		InputDir:    inputDir,
		OutputDir:   t.TempDir(),
		Processor:   proc,
		Broadcaster: broadcaster,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Imaging:     true,
		Telemetry:   true,
	})

	return orch, broadcaster
}

func TestStartWithNoImages(t *testing.T) {
	t.Parallel()

	orch, broadcaster := newTestOrchestrator(t, t.TempDir(), succeedExcept(""))

	if err := orch.Start(imageproc.DefaultOperations(), 2); err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	broadcaster.waitFor(t, isStatus("idle"))

	var warnings int
	for _, env := range broadcaster.snapshot() {
		switch env.Type {
		case protocol.TypeLog:
			var entry protocol.LogEntry
			if err := json.Unmarshal(env.Data, &entry); err != nil {
				t.Fatalf("failed to decode log entry: '%v'", err)
			}

			if entry.Level == protocol.LevelWarning {
				warnings++
			}

		case protocol.TypeStatus:
			var status protocol.Status
			if err := json.Unmarshal(env.Data, &status); err != nil {
				t.Fatalf("failed to decode status: '%v'", err)
			}

			// An empty batch must never enter the running phase.
			if status.State != "idle" {
				t.Errorf("expected state: got '%s', want 'idle'", status.State)
			}
		}
	}

	if warnings != 1 {
		t.Errorf("expected warning count: got '%d', want '1'", warnings)
	}

	if got := orch.Status(); got.State != "idle" || got.Current != 0 || got.Total != 0 {
		t.Errorf("expected idle status with zeroed counters: got '%+v'", got)
	}
}

func TestBatchLifecycle(t *testing.T) {
	t.Parallel()

	inputDir := makeInputDir(
		t,
		"a.jpg", "b.jpg", "c.jpg", "d.jpg", "bad.jpg",
	)

	orch, broadcaster := newTestOrchestrator(t, inputDir, succeedExcept("bad.jpg"))

	if err := orch.Start(imageproc.DefaultOperations(), 2); err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	broadcaster.waitFor(t, isStatus("running"))
	broadcaster.waitFor(t, isStatus("idle"))

	var progresses []protocol.Progress
	var results int
	var metrics []protocol.BatchMetrics

	for _, env := range broadcaster.snapshot() {
		switch env.Type {
		case protocol.TypeProgress:
			var progress protocol.Progress
			if err := json.Unmarshal(env.Data, &progress); err != nil {
				t.Fatalf("failed to decode progress: '%v'", err)
			}
			progresses = append(progresses, progress)

		case protocol.TypeResult:
			results++

		case protocol.TypeMetrics:
			var m protocol.BatchMetrics
			if err := json.Unmarshal(env.Data, &m); err != nil {
				t.Fatalf("failed to decode metrics: '%v'", err)
			}
			metrics = append(metrics, m)
		}
	}

	if len(progresses) != 5 {
		t.Fatalf("expected progress count: got '%d', want '5'", len(progresses))
	}

	wantPercentages := []int{20, 40, 60, 80, 100}
	for i, progress := range progresses {
		if progress.Current != i+1 {
			t.Errorf(
				"expected current to increase by 1: got '%d', want '%d'",
				progress.Current,
				i+1,
			)
		}

		if progress.Total != 5 {
			t.Errorf("expected total: got '%d', want '5'", progress.Total)
		}

		if progress.Percentage != wantPercentages[i] {
			t.Errorf(
				"expected percentage: got '%d', want '%d'",
				progress.Percentage,
				wantPercentages[i],
			)
		}
	}

	if results != 4 {
		t.Errorf("expected result event count: got '%d', want '4'", results)
	}

	if len(metrics) != 1 {
		t.Fatalf("expected metrics event count: got '%d', want '1'", len(metrics))
	}

	got := metrics[0]
	if got.Successful != 4 || got.Failed != 1 || got.Total != 5 {
		t.Errorf(
			"expected metrics counts: got '%d/%d/%d', want '4/1/5'",
			got.Successful,
			got.Failed,
			got.Total,
		)
	}

	if got.Workers != 2 {
		t.Errorf("expected metrics workers: got '%d', want '2'", got.Workers)
	}

	if got.Speedup <= 0 {
		t.Errorf("expected positive speedup: got '%f'", got.Speedup)
	}

	if status := orch.Status(); status.State != "idle" ||
		status.Current != 0 || status.Total != 0 {
		t.Errorf("expected idle status with zeroed counters: got '%+v'", status)
	}
}

func TestStartWhileRunningIsRejected(t *testing.T) {
	t.Parallel()

	inputDir := makeInputDir(t, "a.jpg", "b.jpg")

	release := make(chan struct{})
	proc := fakeProcessor{fn: func(inputPath string) imageproc.Result {
		<-release
		return imageproc.Result{File: filepath.Base(inputPath), Success: true}
	}}

	orch, broadcaster := newTestOrchestrator(t, inputDir, proc)

	if err := orch.Start(imageproc.DefaultOperations(), 1); err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	broadcaster.waitFor(t, isStatus("running"))

	before := orch.Status()

	if err := orch.Start(imageproc.DefaultOperations(), 1); err != orchestrator.ErrBatchInProgress {
		t.Errorf(
			"expected error: got '%v', want '%v'",
			err,
			orchestrator.ErrBatchInProgress,
		)
	}

	if after := orch.Status(); after != before {
		t.Errorf(
			"expected state to be unchanged: got '%+v', want '%+v'",
			after,
			before,
		)
	}

	close(release)
	broadcaster.waitFor(t, isStatus("idle"))
}

func TestStopCancelsBatch(t *testing.T) {
	t.Parallel()

	names := make([]string, 5)
	for i := range names {
		names[i] = fmt.Sprintf("img_%d.jpg", i)
	}
	inputDir := makeInputDir(t, names...)

	proc := fakeProcessor{fn: func(inputPath string) imageproc.Result {
		time.Sleep(100 * time.Millisecond)
		return imageproc.Result{
			File:        filepath.Base(inputPath),
			Success:     true,
			TimeSeconds: 0.1,
		}
	}}

	orch, broadcaster := newTestOrchestrator(t, inputDir, proc)

	if err := orch.Start(imageproc.DefaultOperations(), 1); err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	broadcaster.waitFor(t, func(env protocol.ServerEnvelope) bool {
		return env.Type == protocol.TypeProgress
	})

	if err := orch.Stop(); err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	broadcaster.waitFor(t, isStatus("stopping"))
	broadcaster.waitFor(t, isStatus("idle"))

	var progresses int
	var lastCurrent int
	for _, env := range broadcaster.snapshot() {
		switch env.Type {
		case protocol.TypeMetrics:
			t.Errorf("expected no metrics event for a cancelled batch")

		case protocol.TypeProgress:
			progresses++

			var progress protocol.Progress
			if err := json.Unmarshal(env.Data, &progress); err != nil {
				t.Fatalf("failed to decode progress: '%v'", err)
			}

			if progress.Current != lastCurrent+1 {
				t.Errorf(
					"expected current to increase by 1: got '%d', want '%d'",
					progress.Current,
					lastCurrent+1,
				)
			}
			lastCurrent = progress.Current
		}
	}

	if progresses >= 5 {
		t.Errorf("expected cancelled batch to stop early: got '%d' progress events", progresses)
	}

	if status := orch.Status(); status.State != "idle" ||
		status.Current != 0 || status.Total != 0 {
		t.Errorf("expected idle status with zeroed counters: got '%+v'", status)
	}
}

func TestStopWhenIdle(t *testing.T) {
	t.Parallel()

	orch, _ := newTestOrchestrator(t, t.TempDir(), succeedExcept(""))

	if err := orch.Stop(); err != orchestrator.ErrNoBatchRunning {
		t.Errorf(
			"expected error: got '%v', want '%v'",
			err,
			orchestrator.ErrNoBatchRunning,
		)
	}
}

func TestPhaseString(t *testing.T) {
	t.Parallel()

	scenarios := map[orchestrator.Phase]string{
		orchestrator.PhaseIdle:     "idle",
		orchestrator.PhaseRunning:  "running",
		orchestrator.PhaseStopping: "stopping",
		orchestrator.Phase(99):     "idle",
	}

	for phase, want := range scenarios {
		if got := phase.String(); got != want {
			t.Errorf("expected phase string: got '%s', want '%s'", got, want)
		}
	}
}
