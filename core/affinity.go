package core

// CPUPinner binds the calling OS thread to the CPU assigned to a worker.
// Pin is called from the worker goroutine after runtime.LockOSThread, so the
// binding applies to that worker's thread only.
type CPUPinner interface {
	Pin(worker int) error
}

// PinnerFunc adapts a function to CPUPinner.
type PinnerFunc func(worker int) error

func (f PinnerFunc) Pin(worker int) error { return f(worker) }

// NoPinning returns a pinner that leaves thread affinity untouched. Workers
// still lock their OS thread.
func NoPinning() CPUPinner {
	return PinnerFunc(func(int) error { return nil })
}

// OSPinner returns the platform pinner. Worker i is bound to
// allowed[i % len(allowed)], where allowed is the set of CPUs the process may
// run on at the time OSPinner is called.
//
// On platforms without a thread affinity API every Pin fails with
// ErrAffinityUnsupported.
func OSPinner() CPUPinner {
	allowed, err := allowedCPUs()
	return &osPinner{allowed: allowed, err: err}
}

type osPinner struct {
	allowed []int
	err     error
}

func (p *osPinner) Pin(worker int) error {
	if p.err != nil {
		return p.err
	}
	if len(p.allowed) == 0 {
		return ErrAffinityUnsupported
	}
	return pinCurrentThread(p.allowed[worker%len(p.allowed)])
}

// CPUFor returns the CPU worker would be pinned to.
func (p *osPinner) CPUFor(worker int) (int, bool) {
	if p.err != nil || len(p.allowed) == 0 {
		return 0, false
	}
	return p.allowed[worker%len(p.allowed)], true
}
