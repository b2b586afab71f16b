//go:build linux

package core

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func allowedCPUs() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, fmt.Errorf("%w: sched_getaffinity: %w", ErrAffinity, err)
	}
	n := set.Count()
	out := make([]int, 0, n)
	for cpu := 0; len(out) < n; cpu++ {
		if set.IsSet(cpu) {
			out = append(out, cpu)
		}
	}
	return out, nil
}

// pinCurrentThread restricts the calling thread to cpu. pid 0 selects the
// calling thread, not the whole process.
func pinCurrentThread(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("%w: cpu %d: %w", ErrAffinity, cpu, err)
	}
	return nil
}

