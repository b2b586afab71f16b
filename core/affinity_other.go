//go:build !linux && !windows

package core

func allowedCPUs() ([]int, error) {
	return nil, ErrAffinityUnsupported
}

func pinCurrentThread(cpu int) error {
	return ErrAffinityUnsupported
}
