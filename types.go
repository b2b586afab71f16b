package worksteal

import "github.com/aminehadbi/worksteal/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the worksteal package for most use cases.

// Scheduler is the work-stealing worker pool
type Scheduler = core.Scheduler

// Config configures a Scheduler
type Config = core.Config

// Task is the unit of work
type Task = core.Task

// TaskState is the lifecycle state of a Task
type TaskState = core.TaskState

// Future carries the outcome of a Task
type Future[T any] = core.Future[T]

// Awaitable is any Future regardless of its value type
type Awaitable = core.Awaitable

// TaskFunc is a callable producing a value
type TaskFunc[T any] = core.TaskFunc[T]

// ActionFunc is a callable without a value
type ActionFunc = core.ActionFunc

// PerWorker holds one value per worker
type PerWorker[T any] = core.PerWorker[T]

// CPUPinner binds worker threads to CPUs
type CPUPinner = core.CPUPinner

// PinnerFunc adapts a function to CPUPinner
type PinnerFunc = core.PinnerFunc

// PanicError is the failure recorded for a panicking task
type PanicError = core.PanicError

// SchedulerStats is a point-in-time view of a Scheduler
type SchedulerStats = core.SchedulerStats

// Task states
const (
	TaskPending   = core.TaskPending
	TaskRunning   = core.TaskRunning
	TaskCompleted = core.TaskCompleted
	TaskFailed    = core.TaskFailed
	TaskDiscarded = core.TaskDiscarded
)

// Errors
var (
	ErrInvalidWorkerCount  = core.ErrInvalidWorkerCount
	ErrAffinity            = core.ErrAffinity
	ErrAffinityUnsupported = core.ErrAffinityUnsupported
	ErrSchedulerClosed     = core.ErrSchedulerClosed
	ErrTaskDiscarded       = core.ErrTaskDiscarded
	ErrTaskAlreadyEnqueued = core.ErrTaskAlreadyEnqueued
	ErrNilTask             = core.ErrNilTask
	ErrNotOnWorker         = core.ErrNotOnWorker
	ErrGracefulTimeout     = core.ErrGracefulTimeout
)

// Constructors and helpers
var (
	New            = core.New
	NewWithWorkers = core.NewWithWorkers
	DefaultConfig  = core.DefaultConfig
	CreateAction   = core.CreateAction
	WorkerIndex    = core.WorkerIndex
	IsPanic        = core.IsPanic
	NoPinning      = core.NoPinning
	OSPinner       = core.OSPinner
)

// CreateTask wraps fn into a pending Task and its Future.
func CreateTask[T any](fn TaskFunc[T]) (*Task, *Future[T]) {
	return core.CreateTask(fn)
}

// NewPerWorker allocates one slot per worker of s.
func NewPerWorker[T any](s *Scheduler) *PerWorker[T] {
	return core.NewPerWorker[T](s)
}
