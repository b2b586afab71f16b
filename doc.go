// Package worksteal provides a work-stealing task scheduler for Go.
//
// A Scheduler owns a fixed number of workers. Each worker is a goroutine
// locked to its own OS thread and pinned to one CPU, and each owns a FIFO
// queue. Submissions are spread round-robin over the queues; a worker that
// runs out of work takes tasks from the front of its neighbours' queues
// before blocking on its own.
//
// # Quick Start
//
// Initialize the global scheduler at application startup:
//
//	if err := worksteal.InitGlobalScheduler(4); err != nil { // 4 pinned workers
//		log.Fatal(err)
//	}
//	defer worksteal.ShutdownGlobalScheduler()
//
// Submit work and wait for the result:
//
//	f, err := worksteal.Submit(worksteal.GetGlobalScheduler(), func(ctx context.Context) (int, error) {
//		return 6 * 7, nil
//	})
//	v, err := f.Wait()
//
// # Key Concepts
//
// Task: one deferred unit of work. Arguments are bound by closure capture;
// the callable receives a context carrying the identity of the worker that
// runs it (see WorkerIndex).
//
// Future: the single-assignment outcome of a Task. Wait parks the caller;
// Done and TryGet support bounded or non-blocking waits.
//
// PerWorker: one slot per worker, reachable from a task without locking,
// for reductions that combine per-worker partial results at the end.
//
// # Failures
//
// A task that returns an error or panics fails only its own Future; the
// worker recovers and keeps running. Panics are reported as *PanicError.
//
// # Shutdown
//
// Shutdown lets running tasks finish and discards queued ones, resolving
// their Futures with ErrTaskDiscarded. ShutdownGraceful waits for every
// accepted task first.
package worksteal
