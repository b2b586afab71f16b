package core

import (
	"context"
	"runtime"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution, after the panic
// has been recovered and recorded into the task's Future.
//
// Implementations should be thread-safe as they may be called concurrently
// from every worker.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - ctx: The worker context the task ran with (see WorkerIndex)
	// - schedulerName: The name of the scheduler where the panic occurred
	// - workerID: The index of the worker that executed the task
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, schedulerName string, workerID int, panicInfo any, stackTrace []byte)
}

// NoOpPanicHandler ignores panics. The failure is still delivered through the
// task's Future.
type NoOpPanicHandler struct{}

func (h *NoOpPanicHandler) HandlePanic(ctx context.Context, schedulerName string, workerID int, panicInfo any, stackTrace []byte) {
}

// LoggingPanicHandler reports panics through a Logger at Warn level.
type LoggingPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic value and stack.
func (h *LoggingPanicHandler) HandlePanic(ctx context.Context, schedulerName string, workerID int, panicInfo any, stackTrace []byte) {
	h.Logger.Warn("task panicked",
		F("scheduler", schedulerName),
		F("worker", workerID),
		F("panic", panicInfo),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting task execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods are called from worker goroutines on the hot path and must be
// non-blocking.
type Metrics interface {
	// RecordTaskDuration records how long a task took to execute on a worker.
	RecordTaskDuration(worker int, duration time.Duration)

	// RecordTaskFailure records a task that returned an error or panicked.
	RecordTaskFailure(worker int, panicked bool)

	// RecordSteal records that thief executed a task taken from victim's queue.
	RecordSteal(thief, victim int)

	// RecordTaskDiscarded records a task that was never executed.
	// reason is "closed" (rejected by Enqueue) or "shutdown" (left in a queue).
	RecordTaskDiscarded(reason string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskDuration(worker int, duration time.Duration) {}
func (m *NilMetrics) RecordTaskFailure(worker int, panicked bool)         {}
func (m *NilMetrics) RecordSteal(thief, victim int)                       {}
func (m *NilMetrics) RecordTaskDiscarded(reason string)                   {}

// Discard reasons passed to Metrics.RecordTaskDiscarded.
const (
	DiscardReasonClosed   = "closed"
	DiscardReasonShutdown = "shutdown"
)

// =============================================================================
// Config: Configuration for Scheduler
// =============================================================================

// DefaultSpinMultiplier is the number of probe rounds over all queues that
// Enqueue and idle workers make before falling back to blocking.
const DefaultSpinMultiplier = 32

// Config holds configuration options for Scheduler.
// All fields are optional; zero values fall back to defaults.
type Config struct {
	// Name identifies the scheduler in logs, stats and metrics. Defaults to "worksteal".
	Name string

	// Workers is the number of pinned workers. Defaults to runtime.NumCPU().
	Workers int

	// SpinMultiplier scales the number of non-blocking probes. Defaults to DefaultSpinMultiplier.
	SpinMultiplier int

	// Pinner binds each worker's OS thread to a CPU. Defaults to OSPinner.
	// Use NoPinning() to opt out explicitly.
	Pinner CPUPinner

	// Logger receives scheduler lifecycle events. Defaults to a ZapLogger on zap.L().
	Logger Logger

	// Metrics receives per-task measurements. Defaults to NilMetrics.
	Metrics Metrics

	// PanicHandler is called when a task panics. Defaults to NoOpPanicHandler.
	PanicHandler PanicHandler

	// DrainOnShutdown makes Shutdown wait for every queued task to run
	// instead of discarding what has not been dequeued yet.
	DrainOnShutdown bool
}

// DefaultConfig returns a config with default handlers.
func DefaultConfig() *Config {
	return &Config{
		Name:           "worksteal",
		Workers:        runtime.NumCPU(),
		SpinMultiplier: DefaultSpinMultiplier,
		Pinner:         OSPinner(),
		Logger:         NewZapLogger(nil),
		Metrics:        &NilMetrics{},
		PanicHandler:   &NoOpPanicHandler{},
	}
}

// withDefaults returns a copy of cfg with every unset field filled in.
func (cfg *Config) withDefaults() (Config, error) {
	out := *DefaultConfig()
	if cfg == nil {
		return out, nil
	}
	if cfg.Workers < 0 {
		return out, ErrInvalidWorkerCount
	}
	if cfg.Name != "" {
		out.Name = cfg.Name
	}
	if cfg.Workers > 0 {
		out.Workers = cfg.Workers
	}
	if cfg.SpinMultiplier > 0 {
		out.SpinMultiplier = cfg.SpinMultiplier
	}
	if cfg.Pinner != nil {
		out.Pinner = cfg.Pinner
	}
	if cfg.Logger != nil {
		out.Logger = cfg.Logger
	}
	if cfg.Metrics != nil {
		out.Metrics = cfg.Metrics
	}
	if cfg.PanicHandler != nil {
		out.PanicHandler = cfg.PanicHandler
	}
	out.DrainOnShutdown = cfg.DrainOnShutdown
	return out, nil
}
