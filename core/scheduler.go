package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
)

// idlePollInterval is how often a draining shutdown checks for outstanding work.
const idlePollInterval = 5 * time.Millisecond

// Scheduler is a fixed pool of pinned workers, each owning a WorkerQueue.
// Enqueue spreads tasks round-robin over the queues; idle workers steal from
// the front of their neighbours' queues before blocking on their own.
type Scheduler struct {
	name    string
	spin    int
	drain   bool
	queues  []*WorkerQueue
	workers []*worker
	wg      sync.WaitGroup

	// counter picks the home queue of the next submission.
	counter atomic.Uint64

	queued    atomic.Int64 // accepted, not yet dequeued
	active    atomic.Int64 // executing on a worker
	inflight  atomic.Int64 // accepted, not yet finished or discarded
	completed atomic.Int64
	failed    atomic.Int64
	discarded atomic.Int64
	stolen    atomic.Int64

	logger       Logger
	metrics      Metrics
	panicHandler PanicHandler
	pinner       CPUPinner

	closed       atomic.Bool
	shutdownOnce sync.Once
}

// New creates the queues and starts every worker. Each worker locks its OS
// thread and pins it before New returns; if any worker fails to pin, the
// workers that did start are stopped and joined and the combined error is
// returned.
func New(cfg *Config) (*Scheduler, error) {
	c, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		name:         c.Name,
		spin:         c.SpinMultiplier,
		drain:        c.DrainOnShutdown,
		queues:       make([]*WorkerQueue, c.Workers),
		workers:      make([]*worker, c.Workers),
		logger:       c.Logger,
		metrics:      c.Metrics,
		panicHandler: c.PanicHandler,
		pinner:       c.Pinner,
	}
	for i := range s.queues {
		s.queues[i] = NewWorkerQueue()
	}

	initCh := make(chan error, c.Workers)
	for i := range s.workers {
		w := newWorker(s, i)
		s.workers[i] = w
		s.wg.Add(1)
		go w.run(initCh)
	}

	var startErr error
	for range s.workers {
		startErr = multierr.Append(startErr, <-initCh)
	}
	if startErr != nil {
		s.closed.Store(true)
		s.terminateQueues()
		s.wg.Wait()
		s.logger.Error("failed to start scheduler",
			F("scheduler", s.name),
			F("workers", c.Workers),
			F("error", startErr),
		)
		return nil, startErr
	}

	s.logger.Debug("scheduler started",
		F("scheduler", s.name),
		F("workers", c.Workers),
		F("spin", s.spin),
	)
	return s, nil
}

// NewWithWorkers is New with the given worker count and every other option
// at its default.
func NewWithWorkers(workers int) (*Scheduler, error) {
	if workers <= 0 {
		return nil, ErrInvalidWorkerCount
	}
	return New(&Config{Workers: workers})
}

// Enqueue hands t to the pool. The home queue is chosen round-robin; the
// first queue, starting at home, whose lock is free takes the task. After
// WorkerCount*SpinMultiplier failed attempts Enqueue blocks on the home
// queue's lock.
//
// Once Shutdown has started the task is not accepted: it is marked
// TaskDiscarded, its Future resolves with ErrSchedulerClosed and that error is
// returned.
func (s *Scheduler) Enqueue(t *Task) error {
	if t == nil {
		return ErrNilTask
	}
	if !t.enqueued.CompareAndSwap(false, true) {
		return ErrTaskAlreadyEnqueued
	}
	if s.closed.Load() {
		s.discard(t, ErrSchedulerClosed, DiscardReasonClosed)
		return ErrSchedulerClosed
	}

	s.inflight.Add(1)
	s.queued.Add(1)

	n := len(s.queues)
	home := int((s.counter.Add(1) - 1) % uint64(n))
	for k := 0; k < n*s.spin; k++ {
		switch s.queues[(home+k)%n].TryPushBack(t) {
		case pushOK:
			return nil
		case pushTerminated:
			return s.rejectAccepted(t)
		}
	}

	if s.queues[home].PushBack(t) {
		return nil
	}
	return s.rejectAccepted(t)
}

func (s *Scheduler) rejectAccepted(t *Task) error {
	s.queued.Add(-1)
	s.inflight.Add(-1)
	s.discard(t, ErrSchedulerClosed, DiscardReasonClosed)
	return ErrSchedulerClosed
}

func (s *Scheduler) discard(t *Task, reason error, label string) {
	if t.discard(reason) {
		s.discarded.Add(1)
		s.metrics.RecordTaskDiscarded(label)
	}
}

// Shutdown stops the pool and blocks until every worker has exited. Tasks
// already executing run to completion; tasks still queued are not executed
// and their Futures resolve with ErrTaskDiscarded. With
// Config.DrainOnShutdown, Shutdown first waits until every accepted task,
// including tasks enqueued by running tasks, has finished.
//
// Shutdown is idempotent. It must not be called from inside a task.
func (s *Scheduler) Shutdown() {
	if s.drain && !s.closed.Load() {
		s.waitIdle(nil)
	}
	s.shutdownOnce.Do(s.teardown)
}

// ShutdownGraceful waits for all queued and active tasks to complete, then
// shuts down. New tasks are still accepted while draining so running tasks
// can enqueue follow-up work.
// Returns an error wrapping ErrGracefulTimeout if work remained after timeout;
// the pool is shut down either way.
func (s *Scheduler) ShutdownGraceful(timeout time.Duration) error {
	var err error
	if !s.closed.Load() {
		deadline := time.NewTimer(timeout)
		defer deadline.Stop()
		if !s.waitIdle(deadline.C) {
			err = fmt.Errorf("%w after %v with %d tasks outstanding", ErrGracefulTimeout, timeout, s.inflight.Load())
		}
	}
	s.shutdownOnce.Do(s.teardown)
	return err
}

// Close implements io.Closer.
func (s *Scheduler) Close() error {
	s.Shutdown()
	return nil
}

// waitIdle polls until no accepted task is outstanding. A nil deadline waits
// forever. Returns false if the deadline fired first.
func (s *Scheduler) waitIdle(deadline <-chan time.Time) bool {
	if s.inflight.Load() == 0 {
		return true
	}
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return s.inflight.Load() == 0
		case <-ticker.C:
			if s.inflight.Load() == 0 {
				return true
			}
		}
	}
}

func (s *Scheduler) teardown() {
	s.closed.Store(true)
	s.terminateQueues()
	s.wg.Wait()

	dropped := 0
	for _, q := range s.queues {
		for _, t := range q.Drain() {
			s.queued.Add(-1)
			s.inflight.Add(-1)
			s.discard(t, ErrTaskDiscarded, DiscardReasonShutdown)
			dropped++
		}
	}

	s.logger.Info("scheduler shut down",
		F("scheduler", s.name),
		F("completed", s.completed.Load()),
		F("failed", s.failed.Load()),
		F("discarded", s.discarded.Load()),
		F("dropped_at_shutdown", dropped),
	)
}

func (s *Scheduler) terminateQueues() {
	for _, q := range s.queues {
		q.Terminate()
	}
}

// Name returns the configured scheduler name.
func (s *Scheduler) Name() string { return s.name }

// WorkerCount returns the fixed number of workers.
func (s *Scheduler) WorkerCount() int { return len(s.workers) }

// QueuedTaskCount returns the number of accepted tasks not yet dequeued.
func (s *Scheduler) QueuedTaskCount() int { return int(s.queued.Load()) }

// ActiveTaskCount returns the number of tasks currently executing.
func (s *Scheduler) ActiveTaskCount() int { return int(s.active.Load()) }

// IsClosed reports whether Shutdown has started tearing the pool down.
func (s *Scheduler) IsClosed() bool { return s.closed.Load() }

// Stats returns a point-in-time snapshot. Counters are read independently and
// may be mutually inconsistent while tasks are running.
func (s *Scheduler) Stats() SchedulerStats {
	depths := make([]int, len(s.queues))
	for i, q := range s.queues {
		depths[i] = q.Len()
	}
	return SchedulerStats{
		Name:        s.name,
		Workers:     len(s.workers),
		Queued:      int(s.queued.Load()),
		Active:      int(s.active.Load()),
		Completed:   s.completed.Load(),
		Failed:      s.failed.Load(),
		Discarded:   s.discarded.Load(),
		Stolen:      s.stolen.Load(),
		Running:     !s.closed.Load(),
		QueueDepths: depths,
	}
}

// Submit wraps fn in a task, enqueues it on s and returns its Future.
func Submit[T any](s *Scheduler, fn TaskFunc[T]) (*Future[T], error) {
	t, f := CreateTask(fn)
	if err := s.Enqueue(t); err != nil {
		return f, err
	}
	return f, nil
}

// Spawn enqueues fn on the scheduler that runs ctx. It is meant for tasks
// that fan out follow-up work to their own pool.
func Spawn[T any](ctx context.Context, fn TaskFunc[T]) (*Future[T], error) {
	s, ok := SchedulerFromContext(ctx)
	if !ok {
		return nil, ErrNotOnWorker
	}
	return Submit(s, fn)
}
