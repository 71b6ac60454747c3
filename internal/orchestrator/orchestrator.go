package orchestrator

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/morenoc/imagemill/internal/imageproc"
	"github.com/morenoc/imagemill/internal/protocol"
	"github.com/morenoc/imagemill/internal/workerpool"
)

// Broadcaster fans one event out to every connected client.
type Broadcaster interface {
	Broadcast(msg []byte)
}

// Config carries the orchestrator's collaborators and deployment settings.
type Config struct {
	InputDir  string
	OutputDir string

	Processor   imageproc.Processor
	Broadcaster Broadcaster
	Logger      *slog.Logger

	// Feature-availability flags reported in status events.
	Imaging   bool
	Telemetry bool
}

// Orchestrator is the coordination core of the server. It owns the only
// piece of cross-request mutable state; all mutation goes through its
// methods and is guarded by a single mutex, never touched from worker
// goroutines.
type Orchestrator struct {
	inputDir  string
	outputDir string

	proc        imageproc.Processor
	broadcaster Broadcaster
	logger      *slog.Logger

	imaging   bool
	telemetry bool
	cpuCount  int

	mu         sync.Mutex
	phase      Phase
	current    int
	total      int
	workers    int
	batchStart time.Time

	cancel atomic.Bool
}

// New creates an idle Orchestrator.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		inputDir:    cfg.InputDir,
		outputDir:   cfg.OutputDir,
		proc:        cfg.Processor,
		broadcaster: cfg.Broadcaster,
		logger:      cfg.Logger,
		imaging:     cfg.Imaging,
		telemetry:   cfg.Telemetry,
		cpuCount:    runtime.NumCPU(),
		workers:     runtime.NumCPU(),
	}
}

// Status returns a snapshot of the current server state. It never blocks on
// batch progress.
func (o *Orchestrator) Status() protocol.Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	return protocol.Status{
		State:     o.phase.String(),
		Current:   o.current,
		Total:     o.total,
		Workers:   o.workers,
		CPUCount:  o.cpuCount,
		Imaging:   o.imaging,
		Telemetry: o.telemetry,
	}
}

// Start begins a new batch over the images discovered in the input
// directory, processed by numWorkers parallel workers (clamped to the
// available cores). It returns ErrBatchInProgress if a batch is already in
// flight, leaving all state unchanged.
//
// If no images are discovered, a warning is broadcast and the orchestrator
// stays idle; it never enters the running phase for an empty batch.
func (o *Orchestrator) Start(ops []imageproc.Operation, numWorkers int) error {
	numWorkers = workerpool.ClampWorkers(numWorkers)

	o.mu.Lock()
	if o.phase != PhaseIdle {
		o.mu.Unlock()
		return ErrBatchInProgress
	}

	images, err := imageproc.Discover(o.inputDir)
	if err != nil {
		o.mu.Unlock()
		o.broadcastLog("cannot read input directory: "+err.Error(), protocol.LevelError)
		return nil
	}

	if len(images) == 0 {
		o.mu.Unlock()
		o.broadcastLog(fmt.Sprintf("no images found in %q", o.inputDir), protocol.LevelWarning)
		o.broadcastLog("generate samples with: millctl genimages", protocol.LevelInfo)
		o.broadcastStatus()
		return nil
	}

	if err := os.MkdirAll(o.outputDir, 0o755); err != nil {
		o.mu.Unlock()
		o.broadcastLog("cannot create output directory: "+err.Error(), protocol.LevelError)
		return nil
	}

	o.phase = PhaseRunning
	o.current = 0
	o.total = len(images)
	o.workers = numWorkers
	o.batchStart = time.Now()
	o.cancel.Store(false)
	o.mu.Unlock()

	o.broadcastLog(fmt.Sprintf("%d image(s) found", len(images)), protocol.LevelInfo)
	o.broadcastLog(
		fmt.Sprintf("workers: %d | cpu cores: %d", numWorkers, o.cpuCount),
		protocol.LevelInfo,
	)
	o.broadcastLog("operations: "+opLabels(ops), protocol.LevelInfo)
	o.broadcastStatus()

	tasks := make([]imageproc.Task, 0, len(images))
	for _, img := range images {
		tasks = append(tasks, imageproc.Task{
			InputPath:  img,
			OutputPath: imageproc.OutputPath(img, o.outputDir),
			Operations: ops,
		})
	}

	go o.runBatch(tasks, numWorkers)

	return nil
}

// Stop requests cooperative cancellation of the in-flight batch. It returns
// ErrNoBatchRunning unless a batch is currently running. Tasks already
// executing on a worker are not forcibly terminated.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if o.phase != PhaseRunning {
		o.mu.Unlock()
		return ErrNoBatchRunning
	}

	o.phase = PhaseStopping
	o.mu.Unlock()

	o.cancel.Store(true)
	o.broadcastStatus()

	return nil
}

// runBatch drains worker completions in finish order, broadcasting progress
// and per-item results, then finalizes the batch.
func (o *Orchestrator) runBatch(tasks []imageproc.Task, numWorkers int) {
	pool := workerpool.New(numWorkers)
	batch := pool.Submit(tasks, o.proc)

	var results []imageproc.Result

	for completion := range batch.Completions() {
		if o.cancel.Load() {
			batch.Cancel()
			o.broadcastLog("processing cancelled by user", protocol.LevelWarning)
			break
		}

		if completion.Cancelled {
			continue
		}

		result := completion.Result
		results = append(results, result)

		o.mu.Lock()
		o.current++
		current, total := o.current, o.total
		o.mu.Unlock()

		o.broadcast(protocol.TypeProgress, protocol.Progress{
			Current:    current,
			Total:      total,
			Percentage: int(math.Round(float64(current) / float64(total) * 100)),
			File:       result.File,
		})

		if result.Success {
			o.broadcast(protocol.TypeResult, protocol.TaskResult{
				File:         result.File,
				Time:         round(result.TimeSeconds, 3),
				Operations:   result.OperationsApplied,
				SizeBeforeKB: result.SizeBeforeKB,
				SizeAfterKB:  result.SizeAfterKB,
				SizeOriginal: result.OriginalDims,
				SizeFinal:    result.FinalDims,
				Proceso:      result.Worker,
			})
			o.broadcastLog(
				fmt.Sprintf("%s processed in %.3fs", result.File, result.TimeSeconds),
				protocol.LevelSuccess,
			)
		} else {
			o.broadcastLog(
				fmt.Sprintf("%s: %s", result.File, result.Err),
				protocol.LevelError,
			)
		}
	}

	o.finalize(results, numWorkers)
}

// finalize broadcasts aggregate metrics for an uncancelled batch with at
// least one result, then always resets to idle and broadcasts the final
// state.
func (o *Orchestrator) finalize(results []imageproc.Result, numWorkers int) {
	cancelled := o.cancel.Load()

	if !cancelled && len(results) > 0 {
		o.mu.Lock()
		wall := time.Since(o.batchStart).Seconds()
		total := o.total
		o.mu.Unlock()

		var successful int
		var taskSeconds float64
		for _, r := range results {
			if r.Success {
				successful++
			}
			taskSeconds += r.TimeSeconds
		}

		speedup := 1.0
		if wall > 0 {
			speedup = round(taskSeconds/wall, 2)
		}
		efficiency := round(speedup/float64(numWorkers)*100, 1)

		o.broadcast(protocol.TypeMetrics, protocol.BatchMetrics{
			Speedup:    speedup,
			Efficiency: efficiency,
			TotalTime:  round(wall, 2),
			Successful: successful,
			Failed:     len(results) - successful,
			Total:      total,
			AvgTime:    round(wall/float64(total), 3),
			Workers:    numWorkers,
		})

		o.broadcastLog(
			fmt.Sprintf(
				"finished in %.2fs | speedup: %.2fx | efficiency: %.1f%%",
				wall, speedup, efficiency,
			),
			protocol.LevelSuccess,
		)
	}

	o.mu.Lock()
	o.phase = PhaseIdle
	o.current = 0
	o.total = 0
	o.mu.Unlock()

	o.cancel.Store(false)
	o.broadcastStatus()
}

func (o *Orchestrator) broadcast(eventType string, data any) {
	msg, err := protocol.Marshal(eventType, data)
	if err != nil {
		o.logger.Error("marshal event", "type", eventType, "err", err)
		return
	}

	o.broadcaster.Broadcast(msg)
}

func (o *Orchestrator) broadcastLog(message, level string) {
	msg, err := protocol.MarshalLog(message, level)
	if err != nil {
		o.logger.Error("marshal log event", "err", err)
		return
	}

	o.broadcaster.Broadcast(msg)
}

func (o *Orchestrator) broadcastStatus() {
	o.broadcast(protocol.TypeStatus, o.Status())
}

func opLabels(ops []imageproc.Operation) string {
	labels := make([]string, 0, len(ops))
	for _, op := range ops {
		labels = append(labels, op.Label())
	}

	return strings.Join(labels, ", ")
}

func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
