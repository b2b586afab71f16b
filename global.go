package worksteal

import (
	"sync"

	"github.com/aminehadbi/worksteal/core"
)

// =============================================================================
// Global Scheduler Helper (Singleton)
// =============================================================================

var (
	globalScheduler *Scheduler
	globalMu        sync.Mutex
)

// InitGlobalScheduler creates the global scheduler with the given number of
// pinned workers. Calling it again while a global scheduler exists is a no-op.
func InitGlobalScheduler(workers int) error {
	if workers <= 0 {
		return ErrInvalidWorkerCount
	}
	return InitGlobalSchedulerWithConfig(&Config{Name: "global", Workers: workers})
}

// InitGlobalSchedulerWithConfig is InitGlobalScheduler with a full Config.
func InitGlobalSchedulerWithConfig(cfg *Config) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalScheduler != nil {
		return nil // Already initialized
	}

	s, err := core.New(cfg)
	if err != nil {
		return err
	}
	globalScheduler = s
	return nil
}

// GetGlobalScheduler returns the global scheduler instance.
// It panics if InitGlobalScheduler has not been called.
func GetGlobalScheduler() *Scheduler {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalScheduler == nil {
		panic("global scheduler not initialized. Call InitGlobalScheduler() first.")
	}
	return globalScheduler
}

// ShutdownGlobalScheduler shuts the global scheduler down. A later
// InitGlobalScheduler creates a fresh one.
func ShutdownGlobalScheduler() {
	globalMu.Lock()
	s := globalScheduler
	globalScheduler = nil
	globalMu.Unlock()

	if s != nil {
		s.Shutdown()
	}
}
