package msr

import "errors"

var (
	// ErrDeviceUnavailable means the per-core MSR device could not be
	// opened (module not loaded, permission denied, core id out of
	// range). Fatal at startup per spec.md §7 (DeviceError).
	ErrDeviceUnavailable = errors.New("msr: device unavailable")

	// ErrUnknownEvent means ConfigureCounters was asked to program an
	// EventID with no known encoding.
	ErrUnknownEvent = errors.New("msr: unknown event id")

	// ErrCounterOverflow is logged (never returned) when a fixed counter
	// (instructions retired or core cycles) read back lower than its
	// previous value; programmable counters are not checked. The
	// tick's delta is still reported as zero by DeltaU64; this sentinel
	// exists so the condition is distinguishable in logs from a normal
	// idle tick.
	ErrCounterOverflow = errors.New("msr: counter overflow detected")
)
