//go:build linux

package sampler

import "golang.org/x/sys/unix"

// pinToCore confines the calling OS thread to a single logical CPU, the
// same unix.CPUSet idiom used for core-restricted scheduling elsewhere in
// the ecosystem (e.g. perflock's core-count reservations).
func pinToCore(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	return unix.SchedSetaffinity(0, &set)
}
