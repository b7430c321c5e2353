// Package bandwidth estimates aggregate DRAM bandwidth consumed over the
// last tick, in MB/s (spec.md §4.2). It has two backing implementations
// selected at startup, mirroring the teacher's cgroup-version dispatch for
// CPU accounting (pkg/system/proc.NewCollector): a direct memory-controller
// counter reader and a last-level-cache occupancy/bandwidth monitor reader.
package bandwidth

import (
	"time"

	"github.com/prefetchctl/prefetchctl/internal/msr"
)

// Mode selects which backing implementation New constructs.
type Mode int

const (
	// ModeAuto prefers the RDT/MBM probe and falls back to the
	// memory-controller probe if resctrl is unavailable.
	ModeAuto Mode = iota
	// ModeMC reads per-channel integrated-memory-controller counters via
	// MSR.
	ModeMC
	// ModeRDT reads per-core memory-bandwidth-monitoring counters from
	// the resctrl pseudo-filesystem.
	ModeRDT
)

// Probe reports an aggregate bandwidth estimate once per tick.
type Probe interface {
	// SampleMBs returns the aggregate MB/s consumed since the previous
	// call, given the elapsed wall-clock interval. ok is false when the
	// probe could not produce a reading this tick (spec.md §7
	// ProbeUnknown); callers must treat that as "hold", not as zero
	// bandwidth.
	SampleMBs(interval time.Duration) (mbs uint32, ok bool, err error)
	Close() error
}

// MSRReader is the subset of msr.Device the memory-controller probe needs.
// Kept narrow so tests can supply a minimal fake without importing the full
// Device interface.
type MSRReader interface {
	Read(core int, reg msr.Register) (uint64, error)
}

// New constructs a Probe for the requested mode. cores is the set of
// monitored core IDs; reader backs ModeMC (may be nil for ModeRDT).
func New(mode Mode, reader MSRReader, cores []int) (Probe, error) {
	switch mode {
	case ModeMC:
		return newMCProbe(reader, cores)
	case ModeRDT:
		return newRDTProbe(cores)
	case ModeAuto:
		if p, err := newRDTProbe(cores); err == nil {
			return p, nil
		}
		return newMCProbe(reader, cores)
	default:
		return nil, ErrUnsupportedMode
	}
}
