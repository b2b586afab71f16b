package core

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"
)

type worker struct {
	id  int
	s   *Scheduler
	own *WorkerQueue
	ctx context.Context
}

func newWorker(s *Scheduler, id int) *worker {
	return &worker{
		id:  id,
		s:   s,
		own: s.queues[id],
		ctx: withWorker(context.Background(), s, id),
	}
}

// run is the worker goroutine. It reports the pinning result on initCh
// exactly once before entering the loop.
//
// The OS thread is never unlocked: when run returns, the runtime retires the
// pinned thread instead of handing it to other goroutines.
func (w *worker) run(initCh chan<- error) {
	defer w.s.wg.Done()
	runtime.LockOSThread()

	if err := w.s.pinner.Pin(w.id); err != nil {
		initCh <- fmt.Errorf("worker %d: %w", w.id, err)
		return
	}
	initCh <- nil
	w.s.logger.Debug("worker started", F("scheduler", w.s.name), F("worker", w.id))

	for {
		if w.own.Terminated() {
			break
		}
		t, victim, ok := w.next()
		if !ok {
			break
		}
		// Popped after teardown began: never run it.
		if w.s.closed.Load() {
			w.s.queued.Add(-1)
			w.s.inflight.Add(-1)
			w.s.discard(t, ErrTaskDiscarded, DiscardReasonShutdown)
			continue
		}
		w.execute(t, victim)
	}

	w.s.logger.Debug("worker exited", F("scheduler", w.s.name), F("worker", w.id))
}

// next finds the next task: own queue first, then one probe round over the
// other queues repeated SpinMultiplier times, then a blocking wait on the
// own queue. victim is the index of the queue the task came from.
// Thieves take from the front, the same end the owner pops, so an owner and
// a thief contend for the same task.
func (w *worker) next() (t *Task, victim int, ok bool) {
	if t, ok := w.own.TryPopFront(); ok {
		return t, w.id, true
	}

	queues := w.s.queues
	n := len(queues)
	for k := 1; k <= n*w.s.spin; k++ {
		v := (w.id + k) % n
		if t, ok := queues[v].TryPopFront(); ok {
			return t, v, true
		}
	}

	t, ok = w.own.WaitAndPopFront()
	return t, w.id, ok
}

func (w *worker) execute(t *Task, victim int) {
	s := w.s
	s.active.Add(1)
	s.queued.Add(-1)
	if victim != w.id {
		s.stolen.Add(1)
		s.metrics.RecordSteal(w.id, victim)
	}

	start := time.Now()
	panicked, err := t.execute(w.ctx)
	s.metrics.RecordTaskDuration(w.id, time.Since(start))

	if err != nil {
		s.failed.Add(1)
		s.metrics.RecordTaskFailure(w.id, panicked)
		s.logger.Debug("task failed",
			F("scheduler", s.name),
			F("worker", w.id),
			F("task", t.ID()),
			F("panicked", panicked),
			F("error", err),
		)
		if panicked {
			w.handlePanic(err)
		}
	} else {
		s.completed.Add(1)
	}

	s.active.Add(-1)
	s.inflight.Add(-1)
}

func (w *worker) handlePanic(err error) {
	var pe *PanicError
	if !errors.As(err, &pe) {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.s.logger.Error("panic handler panicked",
				F("scheduler", w.s.name),
				F("worker", w.id),
				F("panic", r),
			)
		}
	}()
	w.s.panicHandler.HandlePanic(w.ctx, w.s.name, w.id, pe.Value, pe.Stack)
}
