package core

// Awaitable is implemented by every Future regardless of its value type.
type Awaitable interface {
	// Done returns a channel that is closed once the outcome is published.
	Done() <-chan struct{}

	// Err blocks until the outcome is published and returns the failure, if any.
	Err() error
}

// Future is the single-assignment result channel of a Task. It is written
// exactly once, by the worker that executed the task or by the scheduler when
// the task is discarded, and may be read any number of times afterwards.
type Future[T any] struct {
	task  *Task
	done  chan struct{}
	value T
	err   error
}

var _ Awaitable = (*Future[int])(nil)

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// complete publishes the outcome. Callers guarantee a single invocation
// through the Task state machine.
func (f *Future[T]) complete(v T, err error) {
	f.value = v
	f.err = err
	close(f.done)
}

// Done returns a channel closed when the outcome is available. Use it with
// select to build bounded waits.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait parks the calling goroutine until the outcome is published and then
// returns it. Repeated calls return the same outcome immediately.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.value, f.err
}

// Err is Wait without the value.
func (f *Future[T]) Err() error {
	<-f.done
	return f.err
}

// TryGet polls without blocking. ok is false while the task has not finished.
func (f *Future[T]) TryGet() (v T, ok bool, err error) {
	select {
	case <-f.done:
		return f.value, true, f.err
	default:
		return v, false, nil
	}
}

// State returns the state of the underlying task.
func (f *Future[T]) State() TaskState {
	return f.task.State()
}
