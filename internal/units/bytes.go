// Package units provides small value types for humanizing throughput and
// size figures in logs and trace output.
package units

import "fmt"

// MBs is a bandwidth figure in megabytes per second, as reported by the
// bandwidth probe.
type MBs uint32

// Humanized returns a human-readable string with automatic unit (MB/s or GB/s).
func (b MBs) Humanized() string {
	const unit = 1024
	v := float64(b)
	if v >= unit {
		return fmt.Sprintf("%.2f GB/s", v/unit)
	}
	return fmt.Sprintf("%d MB/s", uint32(b))
}

// Bytes is a uint64 wrapper representing a size in bytes.
type Bytes uint64

// Humanized returns a human-readable string with automatic unit (B, KB, MB, GB, TB).
func (b Bytes) Humanized() string {
	v := float64(b)
	switch {
	case b >= 1<<40:
		return fmt.Sprintf("%.2f TB", v/(1<<40))
	case b >= 1<<30:
		return fmt.Sprintf("%.2f GB", v/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.2f MB", v/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.2f KB", v/(1<<10))
	default:
		return fmt.Sprintf("%d B", uint64(b))
	}
}

// MB returns the number of megabytes (1024 base).
func (b Bytes) MB() float64 { return float64(b) / (1024 * 1024) }
