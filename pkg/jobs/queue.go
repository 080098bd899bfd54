package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned by Enqueue before Start.
	ErrNotStarted = errors.New("queue not started")
	// ErrStopped is returned by Enqueue once the queue context is done.
	ErrStopped = errors.New("queue stopped")
)

// Job is one unit of background work. Payload is owned by the handler registered for Type.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures the worker pool. OnError sees every failed job exactly once; failed jobs
// are never requeued. BufferSize presizes the backlog and is the depth at which a warning is logged;
// the backlog itself is unbounded so handlers may enqueue follow-up jobs.
type QueueConfig struct {
	Workers    int
	BufferSize int
	Logger     *zap.Logger
	OnError    func(Job, error)
}

// Queue is an in-memory job dispatcher backed by goroutines. With a single worker jobs run one at a
// time in submission order. Enqueue never blocks.
type Queue struct {
	name    string
	handler Handler
	onError func(Job, error)
	workers int
	warnAt  int
	logger  *zap.Logger

	mu      sync.Mutex
	idle    *sync.Cond
	backlog []Job
	pending int
	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	started bool

	wg sync.WaitGroup
}

// NewQueue builds a queue that hands every job to handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	q := &Queue{
		name:    name,
		handler: handler,
		onError: cfg.OnError,
		workers: cfg.Workers,
		warnAt:  cfg.BufferSize,
		logger:  cfg.Logger.With(zap.String("queue", name)),
		backlog: make([]Job, 0, cfg.BufferSize),
		wake:    make(chan struct{}, 1),
	}
	q.idle = sync.NewCond(&q.mu)
	return q
}

// Start begins worker consumption. Later calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Stop cancels workers and waits for them to exit. Jobs still in the backlog are discarded and no
// longer count as pending.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()

	q.mu.Lock()
	dropped := len(q.backlog)
	q.backlog = nil
	q.settleLocked(dropped)
	q.mu.Unlock()
	q.logger.Info("queue stopped", zap.Int("dropped", dropped))
}

// Drain blocks until every accepted job has been handled or discarded, or ctx is done.
func (q *Queue) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.mu.Lock()
		for q.pending > 0 {
			q.idle.Wait()
		}
		q.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len reports the number of jobs waiting for a worker.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

// Enqueue appends a job to the backlog. It is safe to call from a running handler.
func (q *Queue) Enqueue(job Job) error {
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return fmt.Errorf("%s: %w", q.name, ErrNotStarted)
	}
	if q.ctx.Err() != nil {
		q.mu.Unlock()
		return fmt.Errorf("%s: %w", q.name, ErrStopped)
	}
	q.pending++
	q.backlog = append(q.backlog, job)
	depth := len(q.backlog)
	q.mu.Unlock()

	if depth == q.warnAt {
		q.logger.Warn("queue backlog reached buffer size", zap.Int("depth", depth))
	}
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		if q.ctx.Err() != nil {
			return
		}
		job, ok := q.next()
		if ok {
			q.run(job)
			continue
		}
		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
		}
	}
}

func (q *Queue) next() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.backlog) == 0 {
		return Job{}, false
	}
	job := q.backlog[0]
	q.backlog[0] = Job{}
	q.backlog = q.backlog[1:]
	return job, true
}

// settleLocked marks n accepted jobs as finished and wakes Drain callers once none remain.
func (q *Queue) settleLocked(n int) {
	q.pending -= n
	if q.pending <= 0 {
		q.pending = 0
		q.idle.Broadcast()
	}
}

func (q *Queue) run(job Job) {
	defer func() {
		q.mu.Lock()
		q.settleLocked(1)
		q.mu.Unlock()
	}()
	err := q.handler(q.ctx, job)
	if err == nil {
		return
	}
	q.logger.Error("job failed",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Duration("waited", time.Since(job.Enqueued)),
		zap.Error(err))
	if q.onError != nil {
		q.onError(job, err)
	}
}
