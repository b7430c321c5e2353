package bandwidth

import "errors"

var (
	// ErrUnsupportedMode is returned by New for a Mode it does not know.
	ErrUnsupportedMode = errors.New("bandwidth: unsupported probe mode")
	// ErrNoResctrl is returned when the resctrl filesystem is not mounted
	// or exposes no monitoring domains.
	ErrNoResctrl = errors.New("bandwidth: resctrl mon_data unavailable")
	// ErrNoMSRDevice is returned when the memory-controller probe is
	// requested without a backing MSR device.
	ErrNoMSRDevice = errors.New("bandwidth: memory-controller probe requires an msr.Device")
)
