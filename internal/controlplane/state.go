// Package controlplane defines the shared per-core and per-module state
// that samplers publish and controllers read during the barrier-held phase
// of each tick (spec.md §3).
package controlplane

// NumCounters is K, the number of programmable + derived counters tracked
// per core each tick (the seven programmable events; fixed-counter derived
// IPC is tracked separately as LastIPC/LastRetired/LastCycles).
const NumCounters = 7

// CoreState is the per-core entity described in spec.md §3. It is owned
// exclusively by that core's sampler goroutine, which is its only writer;
// the controller only reads it, and only between barrier phase A
// completion and phase B start.
type CoreState struct {
	CoreID   int
	ModuleID int
	// Priority is in [0,99], 99 highest, default 50.
	Priority int

	LastPMU                [NumCounters]uint64
	LastIPC                float64
	LastRetiredInstructions uint64
	LastCycles              uint64

	// CurrentMSRValue and MSRDirty are set by the controller (during its
	// single-writer phase) for primary cores only, and consumed by the
	// sampler immediately after the barrier releases.
	CurrentMSRValue uint64
	MSRDirty        bool
}

// ModuleState is the per-module entity described in spec.md §3. One exists
// per module touched by the monitored core range. Only the primary core's
// sampler ever writes the module's prefetcher MSR.
type ModuleState struct {
	ModuleID          int
	PrimaryCoreID     int
	CurrentLadderLevel int // HEUR only
	CurrentArmIndex    int // MAB only
}

// TickSample is the transient, per-tick aggregate built by the coordinator
// from all published CoreStates plus the bandwidth probe reading. It is
// discarded at the end of the tick (spec.md §3).
type TickSample struct {
	TickIndex     uint64
	BandwidthMBs  uint32
	BandwidthKnown bool
}

// Controller is implemented by HEUR and MAB. Tick is invoked exactly once
// per tick, by the designated master, strictly between barrier phase A
// ("all samples in") and phase B ("samples released") — spec.md §4.4,
// invariant 4. It must set CurrentMSRValue and MSRDirty on every module's
// primary CoreState when (and only when) that module's prefetcher setting
// should change this tick.
type Controller interface {
	Tick(sample TickSample, cores []*CoreState, modules []*ModuleState)
}

// PrimaryCore returns the CoreState for a module's primary core, or nil if
// not found. cores is typically indexed by core id - coreFirst, so this is
// a short linear scan in practice (module counts are small).
func PrimaryCore(cores []*CoreState, mod *ModuleState) *CoreState {
	for _, c := range cores {
		if c.CoreID == mod.PrimaryCoreID {
			return c
		}
	}
	return nil
}

// PriorityWeightedMeanIPC computes the fleet IPC as a priority-weighted
// mean over cores, per spec.md §4.6 step 1. A core contributing IPC 0 (e.g.
// zero instructions retired) still counts with its priority weight.
func PriorityWeightedMeanIPC(cores []*CoreState) float64 {
	var num, den float64
	for _, c := range cores {
		num += float64(c.Priority) * c.LastIPC
		den += float64(c.Priority)
	}
	if den <= 0 {
		return 0
	}
	return num / den
}

// BuildModules groups cores by ModuleID and returns one ModuleState per
// distinct module, with PrimaryCoreID set to the smallest CoreID in that
// module (spec.md §3). The result is sorted by ModuleID.
func BuildModules(cores []*CoreState) []*ModuleState {
	primaries := map[int]int{} // moduleID -> min core id seen so far
	order := []int{}
	for _, c := range cores {
		if min, ok := primaries[c.ModuleID]; !ok {
			primaries[c.ModuleID] = c.CoreID
			order = append(order, c.ModuleID)
		} else if c.CoreID < min {
			primaries[c.ModuleID] = c.CoreID
		}
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && order[j-1] > order[j]; j-- {
			order[j-1], order[j] = order[j], order[j-1]
		}
	}
	mods := make([]*ModuleState, 0, len(order))
	for _, modID := range order {
		mods = append(mods, &ModuleState{ModuleID: modID, PrimaryCoreID: primaries[modID]})
	}
	return mods
}
