package core

// SchedulerStats represents runtime observability state for a Scheduler.
type SchedulerStats struct {
	Name    string
	Workers int

	// Queued is the number of tasks accepted but not yet picked up.
	Queued int
	// Active is the number of tasks currently executing.
	Active int

	Completed int64
	Failed    int64
	Discarded int64
	Stolen    int64

	Running bool

	// QueueDepths holds the length of each worker's queue, by worker index.
	QueueDepths []int
}
