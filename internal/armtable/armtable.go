// Package armtable defines the bandit's arm table: an ordered array of
// candidate prefetcher-control MSR values plus their per-arm reward
// bookkeeping (spec.md §3).
package armtable

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Arm is one discrete prefetcher-control MSR configuration the bandit can
// select. MSRValue is immutable once the table is built; the bookkeeping
// fields are mutated at most once per tick, only by the controller's
// single-writer phase.
type Arm struct {
	MSRValue         uint64
	RewardEstimate   float64
	SelectionCount   uint64
	LastSelectedTick uint64
}

// Table is an ordered, length-stable array of arms. Index 0 is always the
// conservative "safe" configuration, restored on shutdown per spec.md §5.
type Table []Arm

// fileFormat is the on-disk YAML shape for --arm-config-file.
type fileFormat struct {
	Arms []struct {
		MSRValue uint64 `yaml:"msr_value"`
	} `yaml:"arms"`
}

// LoadYAML reads a Table from a YAML file shaped like:
//
//	arms:
//	  - msr_value: 0x0
//	  - msr_value: 0xf
func LoadYAML(path string) (Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("armtable: read %s: %w", path, err)
	}
	var ff fileFormat
	if err := yaml.Unmarshal(b, &ff); err != nil {
		return nil, fmt.Errorf("armtable: parse %s: %w", path, err)
	}
	if len(ff.Arms) == 0 {
		return nil, fmt.Errorf("armtable: %s defines no arms", path)
	}
	t := make(Table, len(ff.Arms))
	for i, a := range ff.Arms {
		t[i] = Arm{MSRValue: a.MSRValue}
	}
	return t, nil
}

// Default returns the bundled default 16-arm table (arm_configuration id
// 0). Arms are ordered from the most conservative (all hardware prefetchers
// disabled) to the most aggressive (all prefetchers enabled, deepest
// streamer distance), walking through the four documented prefetcher-
// control bits (L2 streamer, L2 adjacent-line, DCU streamer, DCU IP) plus a
// two-bit streamer-distance field in bits [5:4] that steps up every four
// arms (0 for arms 0-3 through 3 for arms 12-15). The exact bit semantics are architecture-specific (spec.md §1,
// §9); this table documents one concrete, internally consistent assignment
// per the open question in spec.md §9 rather than reproducing vendor
// register documentation.
func Default() Table {
	t := make(Table, 16)
	for i := range t {
		// bits [3:0]: which of the four prefetcher-control bits are
		// SET, i.e. DISABLED (Intel's MSR_PREFETCH_CONTROL semantics:
		// 1 = disable). Strictly decreases from 15 (all four
		// disabled, most conservative) to 0 (none disabled, most
		// aggressive) as i increases.
		disableMask := uint64(15 - i)
		// bits [5:4]: streamer distance, increasing with aggressiveness.
		distance := uint64(i) >> 2 & 0x3
		t[i] = Arm{MSRValue: disableMask | distance<<4}
	}
	return t
}
