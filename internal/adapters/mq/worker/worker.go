// Package worker runs queued compute jobs against the scoring pipeline.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/captionboard/internal/domain/model"
	"github.com/okian/captionboard/pkg/logger"
	"github.com/okian/captionboard/pkg/metrics"
)

// Job abstracts what workers read off the queue.
type Job = model.ComputeJob

// Computer runs one scoring pass for a date.
type Computer interface {
	Compute(ctx context.Context, date string) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Releaser forgets a key once its job has left the queue.
type Releaser interface {
	Unrecord(ctx context.Context, key string)
}

// InMemoryWorker drains jobs from a Queue one at a time.
type InMemoryWorker struct {
	queue    Queue
	computer Computer
	releaser Releaser
	name     string

	stop chan struct{}
	done chan struct{}

	processed *atomic.Int64

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, c Computer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		computer:  c,
		name:      "worker",
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		processed: new(atomic.Int64),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes jobs until the queue closes, ctx is canceled, or Stop is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		// stop wins over a queue that still has jobs
		select {
		case <-w.stop:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Stop asks the worker to return after its current job.
func (w *InMemoryWorker) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
}

// Shutdown stops the worker and waits for it to return.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.Stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("worker %s: shutdown timed out: %w", w.name, ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job Job) {
	// A running pass has already read the day's records, so triggers from
	// here on need a job of their own.
	if w.releaser != nil {
		w.releaser.Unrecord(ctx, job.Date)
	}

	start := time.Now()
	err := w.computer.Compute(ctx, job.Date)
	elapsed := time.Since(start)

	metrics.RecordWorkerJob(elapsed, err != nil)
	w.processed.Add(1)

	if err != nil {
		w.logger.Error(ctx, "compute job failed",
			logger.String("job_id", job.JobID),
			logger.String("date", job.Date),
			logger.Duration("elapsed", elapsed),
			logger.Error(err),
		)
		return
	}
	w.logger.Info(ctx, "compute job finished",
		logger.String("job_id", job.JobID),
		logger.String("date", job.Date),
		logger.Duration("queued", start.Sub(job.EnqueuedAt)),
		logger.Duration("elapsed", elapsed),
	)
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed *atomic.Int64
	logger    logger.Logger
}

// NewPool creates workerCount workers; fewer than one means runtime.NumCPU().
// opts apply to every worker.
func NewPool(workerCount int, q Queue, c Computer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers:   make([]*InMemoryWorker, workerCount),
		queue:     q,
		processed: new(atomic.Int64),
	}
	for i := range p.workers {
		wopts := append([]Option{}, opts...)
		wopts = append(wopts, WithName("worker-"+strconv.Itoa(i)))
		w := NewInMemoryWorker(q, c, wopts...)
		w.processed = p.processed
		p.workers[i] = w
	}
	base := &InMemoryWorker{logger: logger.Nop()}
	for _, opt := range opts {
		opt(base)
	}
	p.logger = base.logger.Named("worker-pool")

	metrics.UpdateWorkerCount(0)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many jobs the pool has finished, failed or not.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Shutdown closes the queue and lets workers drain what is left. If ctx
// expires first, workers are stopped after their current job.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	defer metrics.UpdateWorkerCount(0)
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			for _, rest := range p.workers {
				rest.Stop()
			}
			return fmt.Errorf("worker pool: shutdown: %w", ctx.Err())
		}
	}
	p.logger.Info(ctx, "worker pool stopped", logger.Any("processed", p.Processed()))
	return nil
}
