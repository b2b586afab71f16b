//go:build windows

package core

import (
	"fmt"
	"math/bits"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32                   = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadAffinityMask  = kernel32.NewProc("SetThreadAffinityMask")
	procGetProcessAffinityMask = kernel32.NewProc("GetProcessAffinityMask")
)

func allowedCPUs() ([]int, error) {
	var processMask, systemMask uintptr
	ret, _, err := procGetProcessAffinityMask.Call(
		uintptr(windows.CurrentProcess()),
		uintptr(unsafe.Pointer(&processMask)),
		uintptr(unsafe.Pointer(&systemMask)),
	)
	if ret == 0 {
		return nil, fmt.Errorf("%w: GetProcessAffinityMask: %w", ErrAffinity, err)
	}
	out := make([]int, 0, bits.OnesCount64(uint64(processMask)))
	for cpu := 0; cpu < bits.UintSize; cpu++ {
		if processMask&(uintptr(1)<<cpu) != 0 {
			out = append(out, cpu)
		}
	}
	return out, nil
}

// pinCurrentThread restricts the calling thread to cpu within the current
// processor group.
func pinCurrentThread(cpu int) error {
	if cpu >= bits.UintSize {
		return fmt.Errorf("%w: cpu %d outside the current processor group", ErrAffinity, cpu)
	}
	ret, _, err := procSetThreadAffinityMask.Call(uintptr(windows.CurrentThread()), uintptr(1)<<cpu)
	if ret == 0 {
		return fmt.Errorf("%w: cpu %d: %w", ErrAffinity, cpu, err)
	}
	return nil
}
