//go:build linux

package affinity

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Pin binds the calling OS thread to one logical CPU. The caller must
// already hold runtime.LockOSThread, otherwise the bound thread may run
// other goroutines. Binding is permanent for the thread's lifetime.
//
// On cgroup-restricted or undersized hosts the syscall can fail with
// EPERM/EINVAL; that is a degradation, not a startup failure, and the
// caller falls back to unpinned scheduling.
func Pin(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: pin thread to cpu %d: %w", cpu, err)
	}
	return nil
}
