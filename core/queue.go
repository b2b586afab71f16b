package core

import (
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// pushResult is the outcome of a non-blocking push attempt.
type pushResult int

const (
	pushOK pushResult = iota
	pushContended
	pushTerminated
)

// WorkerQueue is the FIFO of pending tasks owned by one worker. Every mutation
// happens under mu; cond is signalled on push and broadcast on termination.
// The termination flag is set once and never cleared.
//
// The same non-blocking pop is used by the owner and by thieves, so the
// owner's queue is only special in that it is tried first.
type WorkerQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	tasks *queue.Queue

	// done is written under mu; the atomic mirror lets the worker loop check
	// for termination without taking the lock.
	done       bool
	terminated atomic.Bool
}

// NewWorkerQueue creates an empty, open queue.
func NewWorkerQueue() *WorkerQueue {
	q := &WorkerQueue{
		tasks: queue.New(),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// PushBack appends t, blocking on the lock if needed, and wakes one waiter.
// It returns false if the queue has been terminated; the task is not stored.
func (q *WorkerQueue) PushBack(t *Task) bool {
	q.mu.Lock()
	if q.done {
		q.mu.Unlock()
		return false
	}
	q.tasks.Add(t)
	q.mu.Unlock()
	q.cond.Signal()
	return true
}

// TryPushBack is PushBack without blocking on a contended lock.
func (q *WorkerQueue) TryPushBack(t *Task) pushResult {
	if !q.mu.TryLock() {
		return pushContended
	}
	if q.done {
		q.mu.Unlock()
		return pushTerminated
	}
	q.tasks.Add(t)
	q.mu.Unlock()
	q.cond.Signal()
	return pushOK
}

// TryPopFront removes and returns the front task if the lock can be taken
// without waiting and the queue is non-empty. Contention and emptiness are
// both reported as ok=false.
func (q *WorkerQueue) TryPopFront() (*Task, bool) {
	if !q.mu.TryLock() {
		return nil, false
	}
	defer q.mu.Unlock()

	if q.tasks.Length() == 0 {
		return nil, false
	}
	return q.tasks.Remove().(*Task), true
}

// WaitAndPopFront blocks until the queue is non-empty or terminated. It
// returns ok=false only when the queue is terminated and empty.
func (q *WorkerQueue) WaitAndPopFront() (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.tasks.Length() == 0 && !q.done {
		q.cond.Wait()
	}
	if q.tasks.Length() == 0 {
		return nil, false
	}
	return q.tasks.Remove().(*Task), true
}

// Terminate sets the termination flag and wakes every waiter.
func (q *WorkerQueue) Terminate() {
	q.mu.Lock()
	q.done = true
	q.terminated.Store(true)
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Terminated reports whether Terminate has been called.
func (q *WorkerQueue) Terminated() bool {
	return q.terminated.Load()
}

// Drain removes and returns every queued task in FIFO order.
func (q *WorkerQueue) Drain() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.tasks.Length()
	if n == 0 {
		return nil
	}
	out := make([]*Task, 0, n)
	for q.tasks.Length() > 0 {
		out = append(out, q.tasks.Remove().(*Task))
	}
	return out
}

// Len returns the number of queued tasks.
func (q *WorkerQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tasks.Length()
}

func (q *WorkerQueue) IsEmpty() bool {
	return q.Len() == 0
}
