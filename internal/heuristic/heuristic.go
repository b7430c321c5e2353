// Package heuristic implements HEUR, the bandwidth-gated walk over a
// linearly ordered ladder of prefetcher-aggressiveness levels (spec.md
// §4.5).
package heuristic

import (
	"math"

	"github.com/prefetchctl/prefetchctl/internal/controlplane"
)

// Variant selects between the plain ladder walk and the priority-scaled
// step-size variant.
type Variant int

const (
	// Plain is alg=0: fixed step sizes scaled only by Aggressiveness.
	Plain Variant = iota
	// PriorityScaled is alg=1: step sizes additionally scale by each
	// module's summed core priority relative to the fleet mean.
	PriorityScaled
)

// Config holds HEUR's tunables, populated from the configuration surface
// (spec.md §4.7).
type Config struct {
	// Ladder is the ordered MSR value table, index 0 most conservative.
	Ladder []uint64
	// Aggressiveness scales step sizes, clamped to [0.1, 5.0] by the
	// configuration layer; default 1.0.
	Aggressiveness float64
	// MarginUpFrac/MarginDownFrac are fractions of BandwidthTarget
	// (design suggestion: 0.10 and 0.05).
	MarginUpFrac   float64
	MarginDownFrac float64
	// BandwidthTarget is ddr_bw_target in MB/s.
	BandwidthTarget uint32
	Variant         Variant
	// InitialLevel records the starting ladder level. The controller does
	// not apply it; the coordinator sets each module's CurrentLadderLevel
	// before the first Tick.
	InitialLevel int
}

// Controller is the HEUR control algorithm.
type Controller struct {
	cfg Config
}

// New constructs a HEUR controller. initialized ModuleStates should already
// carry CurrentLadderLevel = cfg.InitialLevel before the first Tick (the
// coordinator sets this at startup).
func New(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

// Tick implements controlplane.Controller.
func (c *Controller) Tick(sample controlplane.TickSample, cores []*controlplane.CoreState, modules []*controlplane.ModuleState) {
	if !sample.BandwidthKnown || sample.BandwidthMBs == 0 {
		// Probe unknown: hold (spec.md §4.5, §7 ProbeUnknown).
		for _, mod := range modules {
			if primary := controlplane.PrimaryCore(cores, mod); primary != nil {
				primary.MSRDirty = false
			}
		}
		return
	}

	target := float64(c.cfg.BandwidthTarget)
	bw := float64(sample.BandwidthMBs)
	headroom := target - bw
	marginUp := c.cfg.MarginUpFrac * target
	marginDown := c.cfg.MarginDownFrac * target

	maxLevel := len(c.cfg.Ladder) - 1
	meanPriority := c.meanModulePriority(cores, modules)

	for _, mod := range modules {
		primary := controlplane.PrimaryCore(cores, mod)
		if primary == nil {
			continue
		}

		stepUp, stepDown := c.steps(mod, cores, meanPriority)
		level := mod.CurrentLadderLevel
		switch {
		case headroom > marginUp:
			level += stepUp
			if level > maxLevel {
				level = maxLevel
			}
		case headroom < -marginDown:
			level -= stepDown
			if level < 0 {
				level = 0
			}
		}
		mod.CurrentLadderLevel = level

		newVal := c.cfg.Ladder[level]
		if newVal != primary.CurrentMSRValue {
			primary.CurrentMSRValue = newVal
			primary.MSRDirty = true
		} else {
			primary.MSRDirty = false
		}
	}
}

// steps returns the (stepUp, stepDown) level deltas for mod this tick,
// always at least 1.
func (c *Controller) steps(mod *controlplane.ModuleState, cores []*controlplane.CoreState, meanPriority float64) (int, int) {
	base := c.cfg.Aggressiveness
	if c.cfg.Variant != PriorityScaled || meanPriority <= 0 {
		return stepFromFloat(base), stepFromFloat(base)
	}
	sum := modulePrioritySum(mod, cores)
	scale := sum / meanPriority
	return stepFromFloat(base * scale), stepFromFloat(base * scale)
}

// stepFromFloat floors the scaled step to an int, with a floor of 1 so the
// ladder always makes progress and ties (non-integer scale factors) resolve
// toward the smaller, more conservative step.
func stepFromFloat(v float64) int {
	s := int(math.Floor(v))
	if s < 1 {
		return 1
	}
	return s
}

func modulePrioritySum(mod *controlplane.ModuleState, cores []*controlplane.CoreState) float64 {
	var sum float64
	for _, c := range cores {
		if c.ModuleID == mod.ModuleID {
			sum += float64(c.Priority)
		}
	}
	return sum
}

func (c *Controller) meanModulePriority(cores []*controlplane.CoreState, modules []*controlplane.ModuleState) float64 {
	if len(modules) == 0 {
		return 0
	}
	var total float64
	for _, mod := range modules {
		total += modulePrioritySum(mod, cores)
	}
	return total / float64(len(modules))
}
