// Package worker runs a fixed-size goroutine pool that executes submitted
// CPU-bound tasks (track decrypt + decode for playback) with a bounded input queue,
// so load beyond capacity is rejected rather than piling up unboundedly.
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sectify/sectify/internal/infrastructure/metrics"
)

// ErrQueueFull is returned by Submit when the pool's input queue has no
// free slot; callers translate this into a 503 with Retry-After.
var ErrQueueFull = errors.New("worker: queue is full")

// Task is a unit of work executed by a pool worker.
type Task func(ctx context.Context) error

type taskItem struct {
	task     Task
	resultCh chan error
}

// Config controls pool sizing.
type Config struct {
	WorkerCount   int
	QueueCapacity int
}

// Pool manages a fixed set of workers draining a bounded task queue.
type Pool struct {
	tasks chan taskItem
	size  int
	log   zerolog.Logger
	wg    sync.WaitGroup
}

// NewPool constructs a Pool. Call Start to begin processing.
func NewPool(cfg Config, log zerolog.Logger) *Pool {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = runtime.NumCPU()
	}
	if cfg.QueueCapacity < 1 {
		cfg.QueueCapacity = cfg.WorkerCount
	}
	return &Pool{
		tasks: make(chan taskItem, cfg.QueueCapacity),
		size:  cfg.WorkerCount,
		log:   log.With().Str("component", "worker-pool").Logger(),
	}
}

// Start launches the worker goroutines; they run until ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	p.log.Info().Int("worker_count", p.size).Msg("starting worker pool")
	for i := 0; i < p.size; i++ {
		w := newWorker(i+1, p.tasks, p.log)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.run(ctx)
		}()
	}
}

// Stop waits for in-flight tasks to drain, up to a grace period.
func (p *Pool) Stop() {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.log.Info().Msg("worker pool stopped")
	case <-time.After(30 * time.Second):
		p.log.Warn().Msg("worker pool shutdown timed out")
	}
}

// Submit enqueues task and blocks until it completes or ctx is cancelled.
// If the queue has no free slot right now, Submit fails fast with
// ErrQueueFull instead of blocking on enqueue.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	item := taskItem{task: task, resultCh: make(chan error, 1)}

	select {
	case p.tasks <- item:
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}

	metrics.WorkerQueueDepth.Set(float64(len(p.tasks)))

	select {
	case err := <-item.resultCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueDepth reports the number of tasks currently buffered.
func (p *Pool) QueueDepth() int {
	return len(p.tasks)
}
