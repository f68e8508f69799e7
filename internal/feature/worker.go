package feature

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrWorkerBusy   = errors.New("feature worker queue is full")
	ErrWorkerClosed = errors.New("feature worker is closed")
)

// Job is one unit of blocking work. ctx carries the worker's per-job
// timeout.
type Job func(ctx context.Context)

// Worker runs jobs one at a time on its own goroutine, in submission order.
// Features hand it their store calls so Act returns without waiting, and
// report results through their response callback.
type Worker struct {
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan Job
	wg     sync.WaitGroup
}

// NewWorker starts a worker holding up to queue pending jobs.
func NewWorker(queue int, timeout time.Duration) *Worker {
	if queue <= 0 {
		queue = 1
	}
	w := &Worker{timeout: timeout, jobs: make(chan Job, queue)}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for job := range w.jobs {
		w.run(job)
	}
}

func (w *Worker) run(job Job) {
	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	job(ctx)
}

// Submit queues job without blocking.
func (w *Worker) Submit(job Job) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWorkerClosed
	}
	select {
	case w.jobs <- job:
		return nil
	default:
		return ErrWorkerBusy
	}
}

// Sync blocks until every job submitted before it has run. It returns at
// once on a closed worker.
func (w *Worker) Sync() {
	done := make(chan struct{})
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return
	}
	w.jobs <- func(context.Context) { close(done) }
	w.mu.RUnlock()
	<-done
}

// Close stops accepting jobs, runs the ones already queued and waits for
// the goroutine to exit. It may be called more than once.
func (w *Worker) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	w.wg.Wait()
	return nil
}
