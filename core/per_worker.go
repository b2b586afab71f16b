package core

import (
	"context"
	"fmt"
)

const cacheLineSize = 64

type paddedSlot[T any] struct {
	v T
	_ [cacheLineSize]byte
}

// PerWorker holds one value per worker of a scheduler. A task reaches its
// worker's slot through Local without any locking: only the worker that owns
// a slot writes it while the scheduler is running. Read the slots with Each
// once the producing tasks have been awaited.
type PerWorker[T any] struct {
	slots []paddedSlot[T]
}

// NewPerWorker allocates one zero-valued slot per worker of s.
func NewPerWorker[T any](s *Scheduler) *PerWorker[T] {
	return &PerWorker[T]{slots: make([]paddedSlot[T], s.WorkerCount())}
}

// Local returns the slot of the worker executing ctx. It panics if ctx does
// not come from a worker, or from a scheduler with more workers than slots.
func (p *PerWorker[T]) Local(ctx context.Context) *T {
	i, ok := WorkerIndex(ctx)
	if !ok {
		panic("worksteal: PerWorker.Local called outside a worker")
	}
	if i >= len(p.slots) {
		panic(fmt.Sprintf("worksteal: worker %d has no PerWorker slot (have %d)", i, len(p.slots)))
	}
	return &p.slots[i].v
}

// Each calls fn for every slot in worker order.
func (p *PerWorker[T]) Each(fn func(worker int, v *T)) {
	for i := range p.slots {
		fn(i, &p.slots[i].v)
	}
}

// Len returns the number of slots.
func (p *PerWorker[T]) Len() int {
	return len(p.slots)
}
