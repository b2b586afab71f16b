package worksteal

import (
	"context"

	"github.com/aminehadbi/worksteal/core"
	"golang.org/x/sync/errgroup"
)

// Submit wraps fn in a task, enqueues it on s and returns its Future.
// On error the Future is already resolved with the same error.
func Submit[T any](s *Scheduler, fn TaskFunc[T]) (*Future[T], error) {
	return core.Submit(s, fn)
}

// Go enqueues a task without a result value.
func Go(s *Scheduler, fn ActionFunc) (*Future[struct{}], error) {
	t, f := core.CreateAction(fn)
	if err := s.Enqueue(t); err != nil {
		return f, err
	}
	return f, nil
}

// Spawn enqueues fn on the scheduler running ctx. Use it from inside a task.
func Spawn[T any](ctx context.Context, fn TaskFunc[T]) (*Future[T], error) {
	return core.Spawn(ctx, fn)
}

// WaitAll waits for every future and returns the first failure. It stops
// waiting, without affecting the tasks, when ctx is done.
func WaitAll(ctx context.Context, futures ...Awaitable) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range futures {
		g.Go(func() error {
			select {
			case <-f.Done():
				return f.Err()
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	return g.Wait()
}
