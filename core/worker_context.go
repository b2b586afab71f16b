package core

import "context"

type workerKey struct{}

type workerInfo struct {
	scheduler *Scheduler
	index     int
}

func withWorker(ctx context.Context, s *Scheduler, index int) context.Context {
	return context.WithValue(ctx, workerKey{}, workerInfo{scheduler: s, index: index})
}

// WorkerIndex returns the index of the worker executing the current task.
// ok is false when ctx was not handed out by a worker.
func WorkerIndex(ctx context.Context) (int, bool) {
	info, ok := ctx.Value(workerKey{}).(workerInfo)
	if !ok {
		return -1, false
	}
	return info.index, true
}

// SchedulerFromContext returns the scheduler owning the current worker, so a
// task can enqueue follow-up work on the same pool.
func SchedulerFromContext(ctx context.Context) (*Scheduler, bool) {
	info, ok := ctx.Value(workerKey{}).(workerInfo)
	if !ok {
		return nil, false
	}
	return info.scheduler, true
}
