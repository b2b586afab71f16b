package core

import (
	"context"
	"runtime/debug"
	"sync/atomic"
)

// TaskFunc is the callable wrapped by a Task. Arguments are bound by closure
// capture; ctx carries the identity of the executing worker (see WorkerIndex).
type TaskFunc[T any] func(ctx context.Context) (T, error)

// ActionFunc is a TaskFunc without a result value.
type ActionFunc func(ctx context.Context) error

// =============================================================================
// TaskState
// =============================================================================

type TaskState int32

const (
	// TaskPending: created, possibly queued, not yet picked up by a worker
	TaskPending TaskState = iota

	// TaskRunning: a worker is executing the callable
	TaskRunning

	// TaskCompleted: the callable returned without error
	TaskCompleted

	// TaskFailed: the callable returned an error or panicked
	TaskFailed

	// TaskDiscarded: never dequeued; dropped by shutdown or rejected by a closed scheduler
	TaskDiscarded
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	case TaskDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskDiscarded
}

// =============================================================================
// Task
// =============================================================================

// job is the typed half of a task: run executes the user callable and keeps
// its value, resolve publishes the outcome to the Future.
type job interface {
	run(ctx context.Context) error
	resolve(err error)
}

var taskIDSeq atomic.Uint64

// Task is a single deferred unit of work. It is shared between the producer
// (which keeps it to inspect State) and the scheduler (while queued or
// executing). A Task executes at most once.
type Task struct {
	id       uint64
	job      job
	state    atomic.Int32
	enqueued atomic.Bool
}

func newTask(j job) *Task {
	return &Task{
		id:  taskIDSeq.Add(1),
		job: j,
	}
}

// ID returns a process-unique task identifier.
func (t *Task) ID() uint64 { return t.id }

// State returns the current lifecycle state.
func (t *Task) State() TaskState { return TaskState(t.state.Load()) }

// execute runs the task once. It returns panicked=true when the callable
// panicked; the panic never propagates to the caller.
func (t *Task) execute(ctx context.Context) (panicked bool, err error) {
	if !t.state.CompareAndSwap(int32(TaskPending), int32(TaskRunning)) {
		return false, nil
	}

	panicked, err = t.invoke(ctx)

	if err != nil {
		t.state.Store(int32(TaskFailed))
	} else {
		t.state.Store(int32(TaskCompleted))
	}
	t.job.resolve(err)
	return panicked, err
}

func (t *Task) invoke(ctx context.Context) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return false, t.job.run(ctx)
}

// discard resolves a task that will never run. Returns false if the task had
// already left the Pending state.
func (t *Task) discard(reason error) bool {
	if !t.state.CompareAndSwap(int32(TaskPending), int32(TaskDiscarded)) {
		return false
	}
	t.job.resolve(reason)
	return true
}

// =============================================================================
// Task creation
// =============================================================================

type futureJob[T any] struct {
	fn     TaskFunc[T]
	future *Future[T]
	value  T
}

func (j *futureJob[T]) run(ctx context.Context) error {
	v, err := j.fn(ctx)
	j.value = v
	return err
}

func (j *futureJob[T]) resolve(err error) {
	if err != nil {
		var zero T
		j.future.complete(zero, err)
		return
	}
	j.future.complete(j.value, nil)
}

// CreateTask wraps fn into a Pending Task and returns it together with the
// Future that will carry its outcome. The task is not enqueued; pass it to
// Scheduler.Enqueue.
func CreateTask[T any](fn TaskFunc[T]) (*Task, *Future[T]) {
	f := newFuture[T]()
	t := newTask(&futureJob[T]{fn: fn, future: f})
	f.task = t
	return t, f
}

// CreateAction is CreateTask for callables without a result value.
func CreateAction(fn ActionFunc) (*Task, *Future[struct{}]) {
	return CreateTask(func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
}
