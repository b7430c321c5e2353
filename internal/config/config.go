// Package config defines the typed configuration surface described in
// spec.md §4.7: the options recognized at startup, their defaults, and the
// validation/normalization rules that separate a fatal ConfigError from a
// silently clamped value.
package config

import (
	"strconv"
	"time"

	"github.com/prefetchctl/prefetchctl/internal/armtable"
	"github.com/prefetchctl/prefetchctl/internal/bandit"
	"github.com/prefetchctl/prefetchctl/internal/bandwidth"
	"github.com/prefetchctl/prefetchctl/internal/heuristic"
)

// Algorithm selects the control algorithm.
type Algorithm int

const (
	HEUR0 Algorithm = iota
	HEURPriority
	MAB
)

// BandwidthMode selects how BandwidthTargetMBs is determined.
type BandwidthMode int

const (
	BandwidthSet BandwidthMode = iota
	BandwidthAutoFraction
	BandwidthSelfTest
)

// AutoFractionOfMax is the fraction of the peak bandwidth measured by the
// startup calibration that becomes the target, in both the auto-fraction
// and self-test modes. No DMI-reported maximum is read.
const AutoFractionOfMax = 0.70

// Config is the fully-typed, validated configuration surface. Zero values
// are not valid configuration; always go through Default then Validate.
type Config struct {
	CoreFirst, CoreLast int // inclusive; -1/-1 means auto-detect

	TickInterval time.Duration

	Algorithm      Algorithm
	Aggressiveness float64

	BandwidthMode       BandwidthMode
	BandwidthTargetMBs  uint32
	BandwidthProbeMode  bandwidth.Mode

	// Priorities maps core id -> priority in [0,99]; a core absent from
	// the map uses DefaultPriority.
	Priorities      map[int]int
	DefaultPriority int

	Epsilon, Gamma, C float64
	ArmConfigFile     string // empty uses the bundled default table
	Reward            bandit.RewardType
	DynamicSD         bandit.DynamicSD
	WindowSize        int
	SDPenaltyK        float64
	SDStepThreshold   float64

	HeuristicVariant heuristic.Variant
}

// Default returns the configuration table's documented defaults (spec.md
// §4.7).
func Default() Config {
	return Config{
		CoreFirst:          -1,
		CoreLast:           -1,
		TickInterval:       time.Second,
		Algorithm:          HEUR0,
		Aggressiveness:     1.0,
		BandwidthMode:      BandwidthAutoFraction,
		BandwidthProbeMode: bandwidth.ModeAuto,
		Priorities:         map[int]int{},
		DefaultPriority:    50,
		Epsilon:            0.1,
		Gamma:              0.959,
		C:                  0.0006,
		Reward:             bandit.RewardIPC,
		DynamicSD:          bandit.SDOff,
		WindowSize:         16,
		SDPenaltyK:         1.0,
		SDStepThreshold:    0.01,
		HeuristicVariant:   heuristic.Plain,
	}
}

const (
	minTickInterval = 100 * time.Microsecond
	maxTickInterval = 60 * time.Second
	minAggr         = 0.1
	maxAggr         = 5.0
)

// Normalize clamps the fields spec.md §4.7 documents as clamped rather
// than rejected: tick interval and aggressiveness, plus the bandit's
// epsilon and gamma (to [0,1]) and C (to >= 0).
func (c *Config) Normalize() {
	if c.TickInterval < minTickInterval {
		c.TickInterval = minTickInterval
	}
	if c.TickInterval > maxTickInterval {
		c.TickInterval = maxTickInterval
	}
	if c.Aggressiveness < minAggr {
		c.Aggressiveness = minAggr
	}
	if c.Aggressiveness > maxAggr {
		c.Aggressiveness = maxAggr
	}
	if c.Epsilon < 0 {
		c.Epsilon = 0
	}
	if c.Epsilon > 1 {
		c.Epsilon = 1
	}
	if c.Gamma < 0 {
		c.Gamma = 0
	}
	if c.Gamma > 1 {
		c.Gamma = 1
	}
	if c.C < 0 {
		c.C = 0
	}
}

// Validate checks the fields that are fatal at startup when out of range:
// priorities, core range, and arm table loadability. Call Normalize first.
func (c *Config) Validate() error {
	if c.CoreFirst >= 0 && c.CoreLast >= 0 && c.CoreFirst > c.CoreLast {
		return &ConfigError{Field: "core range", Msg: "first core must not exceed last core"}
	}
	for core, p := range c.Priorities {
		if p < 0 || p > 99 {
			return &ConfigError{Field: "priority", Msg: "priority for core " + strconv.Itoa(core) + " out of [0,99]"}
		}
	}
	if c.DefaultPriority < 0 || c.DefaultPriority > 99 {
		return &ConfigError{Field: "default priority", Msg: "out of [0,99]"}
	}
	if c.ArmConfigFile != "" {
		if _, err := armtable.LoadYAML(c.ArmConfigFile); err != nil {
			return &ConfigError{Field: "arm configuration id", Msg: err.Error()}
		}
	}
	return nil
}

// PriorityFor returns the configured priority for a core, falling back to
// DefaultPriority.
func (c *Config) PriorityFor(core int) int {
	if p, ok := c.Priorities[core]; ok {
		return p
	}
	return c.DefaultPriority
}
