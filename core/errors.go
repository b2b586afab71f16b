package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWorkerCount is returned by New when Config.Workers is negative
	// and by NewWithWorkers when the count is not positive.
	ErrInvalidWorkerCount = errors.New("worksteal: worker count must be positive")

	// ErrAffinity wraps any failure to pin a worker thread to its CPU.
	ErrAffinity = errors.New("worksteal: failed to set thread affinity")

	// ErrAffinityUnsupported is returned by the OS pinner on platforms without
	// a thread affinity API.
	ErrAffinityUnsupported = errors.New("worksteal: thread affinity not supported on this platform")

	// ErrSchedulerClosed is returned by Enqueue once Shutdown has started.
	ErrSchedulerClosed = errors.New("worksteal: scheduler is shut down")

	// ErrTaskDiscarded resolves the Future of a task that was still queued
	// when its worker observed termination.
	ErrTaskDiscarded = errors.New("worksteal: task discarded at shutdown")

	// ErrTaskAlreadyEnqueued is returned when the same Task is enqueued twice.
	ErrTaskAlreadyEnqueued = errors.New("worksteal: task already enqueued")

	// ErrNilTask is returned when Enqueue is called with a nil task.
	ErrNilTask = errors.New("worksteal: nil task")

	// ErrNotOnWorker is returned by Spawn when ctx does not belong to a worker.
	ErrNotOnWorker = errors.New("worksteal: not running on a worker")

	// ErrGracefulTimeout is returned by ShutdownGraceful when the queues did
	// not drain in time.
	ErrGracefulTimeout = errors.New("worksteal: graceful shutdown timed out")
)

// PanicError is the failure recorded for a task whose callable panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worksteal: task panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error (for example a
// runtime.Error from an integer division by zero).
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsPanic reports whether err carries a recovered task panic.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}
