// Package workerpool bridges the coordinating side of the server to a
// fixed-size pool of parallel workers executing CPU-bound tasks.
//
// A Batch's completions are observable as the tasks finish, in finish
// order, over a channel. Cancelling a Batch prevents not-yet-started tasks
// from executing; tasks already running are not forcibly terminated.
package workerpool

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/morenoc/imagemill/internal/imageproc"
)

// Pool runs batches of tasks across a fixed number of workers. Workers
// share no mutable state with each other or with the submitter; tasks and
// results are passed by value over channels.
type Pool struct {
	workers int
}

// New creates a Pool with the given worker count, clamped to
// [1, runtime.NumCPU()].
func New(workers int) *Pool {
	return &Pool{workers: ClampWorkers(workers)}
}

// Workers returns the pool's worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// ClampWorkers bounds a requested worker count to [1, runtime.NumCPU()].
func ClampWorkers(workers int) int {
	if workers < 1 {
		return 1
	}

	if n := runtime.NumCPU(); workers > n {
		return n
	}

	return workers
}

// Completion is one finished (or cancelled) task reported by a Batch.
type Completion struct {
	Result    imageproc.Result
	Cancelled bool
}

// Batch is one in-flight set of submitted tasks.
type Batch struct {
	completions chan Completion
	cancelled   atomic.Bool
}

// Submit starts executing tasks on the pool's workers and returns
// immediately. The returned Batch reports completions as tasks finish.
//
// The completions channel is buffered to the batch size so workers never
// block on a slow or departed consumer.
func (p *Pool) Submit(tasks []imageproc.Task, proc imageproc.Processor) *Batch {
	b := &Batch{completions: make(chan Completion, len(tasks))}

	pending := make(chan imageproc.Task, len(tasks))
	for _, task := range tasks {
		pending <- task
	}
	close(pending)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)

		go func(name string) {
			defer wg.Done()
			b.run(name, pending, proc)
		}(fmt.Sprintf("worker-%d", i+1))
	}

	go func() {
		wg.Wait()
		close(b.completions)
	}()

	return b
}

// Completions returns the channel of task completions. It is closed once
// every submitted task has been accounted for, whether executed or
// cancelled.
func (b *Batch) Completions() <-chan Completion {
	return b.completions
}

// Cancel prevents tasks that have not yet started from executing. Their
// completions are still emitted, marked cancelled, so the batch always
// drains fully. Tasks already running on a worker finish normally; it is
// the consumer's job to discard those late results.
func (b *Batch) Cancel() {
	b.cancelled.Store(true)
}

func (b *Batch) run(name string, pending <-chan imageproc.Task, proc imageproc.Processor) {
	for task := range pending {
		if b.cancelled.Load() {
			b.completions <- Completion{
				Result:    imageproc.Result{File: filepath.Base(task.InputPath)},
				Cancelled: true,
			}
			continue
		}

		result := proc.Process(task.InputPath, task.OutputPath, task.Operations)
		result.Worker = name

		b.completions <- Completion{Result: result}
	}
}
