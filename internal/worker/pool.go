// Package worker runs ingestion jobs on a fixed set of goroutines fed by a
// bounded queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/msomdec/portfolio-api/internal/domain"
)

var (
	// ErrQueueFull is returned by Submit when the queue has no free slot.
	ErrQueueFull = errors.New("job queue is full")
	// ErrClosed is returned by Submit after Shutdown has begun.
	ErrClosed = errors.New("job queue is closed")
)

// Handler processes one job. It must honour ctx cancellation.
type Handler func(ctx context.Context, job domain.IngestionJob) error

// Options configures a Pool.
type Options struct {
	Workers    int
	QueueDepth int
	// JobTimeout bounds a single job. Zero means no limit.
	JobTimeout time.Duration
	Logger     *slog.Logger
}

// Pool is a bounded background job queue. The zero value is not usable;
// call New.
type Pool struct {
	handler Handler
	opts    Options
	log     *slog.Logger

	jobs    chan domain.IngestionJob
	baseCtx context.Context
	abort   context.CancelFunc
	wg      sync.WaitGroup

	mu        sync.Mutex
	started   bool
	closed    bool
	pending   map[int64]int
	running   map[int64]context.CancelFunc
	cancelled map[int64]bool
}

// New creates a pool. Workers and QueueDepth default to 1 and 64.
func New(handler Handler, opts Options) *Pool {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueDepth < 1 {
		opts.QueueDepth = 64
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		handler:   handler,
		opts:      opts,
		log:       opts.Logger.With("component", "worker"),
		jobs:      make(chan domain.IngestionJob, opts.QueueDepth),
		baseCtx:   ctx,
		abort:     cancel,
		pending:   make(map[int64]int),
		running:   make(map[int64]context.CancelFunc),
		cancelled: make(map[int64]bool),
	}
}

// Start launches the workers. Calling Start more than once has no effect.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	p.wg.Add(p.opts.Workers)
	for i := range p.opts.Workers {
		go p.worker(i)
	}
	p.log.Info("worker pool started", "workers", p.opts.Workers, "queue_depth", p.opts.QueueDepth)
}

// Submit enqueues job without blocking.
func (p *Pool) Submit(job domain.IngestionJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.jobs <- job:
		p.pending[job.PhotoID]++
		return nil
	default:
		return fmt.Errorf("photo %d: %w", job.PhotoID, ErrQueueFull)
	}
}

// Cancel stops the job for photoID. A queued job is skipped when it is
// dequeued; a running job has its context cancelled.
func (p *Pool) Cancel(photoID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending[photoID] == 0 {
		return
	}
	p.cancelled[photoID] = true
	if cancel, ok := p.running[photoID]; ok {
		cancel()
	}
}

// Pending reports whether a job for photoID is queued or running.
func (p *Pool) Pending(photoID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending[photoID] > 0
}

// Len returns the number of queued jobs not yet picked up by a worker.
func (p *Pool) Len() int {
	return len(p.jobs)
}

// Shutdown stops accepting jobs and waits for queued and running jobs to
// finish. If ctx expires first, in-flight jobs are cancelled, the rest of
// the queue is dropped and ctx's error is returned once workers exit.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	started := p.started
	if !started {
		// No worker will ever dequeue these jobs.
		dropped := 0
		for range p.jobs {
			dropped++
		}
		clear(p.pending)
		clear(p.cancelled)
		p.mu.Unlock()
		p.abort()
		if dropped > 0 {
			p.log.Warn("worker pool shut down before start, queued jobs dropped", "dropped", dropped)
		}
		return nil
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.abort()
		p.log.Info("worker pool drained")
		return nil
	case <-ctx.Done():
		p.abort()
		<-done
		p.log.Warn("worker pool shutdown deadline hit, remaining jobs dropped")
		return ctx.Err()
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.run(id, job)
	}
}

func (p *Pool) run(id int, job domain.IngestionJob) {
	log := p.log.With("worker", id, "photo_id", job.PhotoID)

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if p.opts.JobTimeout > 0 {
		ctx, cancel = context.WithTimeout(p.baseCtx, p.opts.JobTimeout)
	} else {
		ctx, cancel = context.WithCancel(p.baseCtx)
	}
	defer cancel()

	p.mu.Lock()
	skip := p.cancelled[job.PhotoID] || p.baseCtx.Err() != nil
	if !skip {
		p.running[job.PhotoID] = cancel
	}
	p.mu.Unlock()
	defer p.finish(job.PhotoID)

	if skip {
		log.Info("job skipped")
		return
	}

	start := time.Now()
	err := p.invoke(ctx, job)
	switch {
	case err == nil:
		log.Info("job completed", "duration", time.Since(start))
	case errors.Is(err, context.DeadlineExceeded):
		log.Error("job timed out", "timeout", p.opts.JobTimeout, "error", err)
	case errors.Is(err, context.Canceled):
		log.Info("job cancelled", "error", err)
	default:
		log.Error("job failed", "duration", time.Since(start), "error", err)
	}
}

func (p *Pool) invoke(ctx context.Context, job domain.IngestionJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.handler(ctx, job)
}

func (p *Pool) finish(photoID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.running, photoID)
	p.pending[photoID]--
	if p.pending[photoID] <= 0 {
		delete(p.pending, photoID)
		delete(p.cancelled, photoID)
	}
}
