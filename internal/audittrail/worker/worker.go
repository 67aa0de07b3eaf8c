// Package worker runs entry builds in the background for the async mode of
// the audit service.
package worker

import (
	"context"
	"log/slog"
	"sync"

	"chainaudit/internal/audittrail/metrics"
)

// Job is one unit of background work. It receives the context captured at
// Submit time, detached from the caller's cancellation.
type Job = func(ctx context.Context)

type task struct {
	ctx context.Context
	job Job
}

// Worker consumes jobs from a bounded inbox. Submit never blocks; a full inbox
// is reported to the caller instead.
type Worker struct {
	inbox   chan task
	workers int
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithConcurrency sets how many jobs run at once. Defaults to 1.
func WithConcurrency(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.workers = n
		}
	}
}

func New(buffer int, opts ...Option) *Worker {
	if buffer <= 0 {
		buffer = 1
	}
	w := &Worker{
		inbox:   make(chan task, buffer),
		workers: 1,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the consumer goroutines. Call Close to drain and stop them.
func (w *Worker) Start() {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.run()
		}()
	}
}

func (w *Worker) run() {
	for t := range w.inbox {
		w.observeDepth()
		w.execute(t)
	}
}

func (w *Worker) execute(t task) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.ErrorContext(t.ctx, "entry job panicked", "panic", r)
		}
	}()
	t.job(t.ctx)
}

// Submit enqueues job. It returns false when the inbox is full or the worker
// is closed.
func (w *Worker) Submit(ctx context.Context, job Job) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.inbox <- task{ctx: ctx, job: job}:
		w.observeDepth()
		return true
	default:
		return false
	}
}

// Close stops accepting jobs and waits for queued ones to finish or for ctx
// to end.
func (w *Worker) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.inbox)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued jobs.
func (w *Worker) Pending() int {
	return len(w.inbox)
}

func (w *Worker) observeDepth() {
	if w.metrics != nil {
		w.metrics.SetQueueDepth(len(w.inbox))
	}
}
