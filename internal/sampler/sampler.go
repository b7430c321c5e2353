// Package sampler implements the per-core sampling worker described in
// spec.md §4.3: one goroutine per monitored core, pinned via CPU affinity,
// that reads its PMU delta each tick, publishes into the shared CoreState,
// and participates in the tick barrier.
package sampler

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/prefetchctl/prefetchctl/internal/barrier"
	"github.com/prefetchctl/prefetchctl/internal/controlplane"
	"github.com/prefetchctl/prefetchctl/internal/msr"
	"github.com/prefetchctl/prefetchctl/internal/util"
)

// Sampler drives one monitored core. It is the sole writer of its
// CoreState and the sole owner of its MSR device handle.
type Sampler struct {
	core         int
	dev          msr.Device
	state        *controlplane.CoreState
	barrier      *barrier.Barrier
	events       []msr.Event
	tickInterval time.Duration
	safeMSR      uint64
	log          *slog.Logger

	prevPMU     [controlplane.NumCounters]uint64
	prevRetired uint64
	prevCycles  uint64
	havePrev    bool
}

// New constructs a Sampler. state is shared with the coordinator and must
// outlive Run. events is the fixed set of programmable counters to program
// on this core (spec.md §4.1); safeMSR is arm 0's value, restored on exit.
func New(core int, dev msr.Device, state *controlplane.CoreState, b *barrier.Barrier, events []msr.Event, safeMSR uint64, tickInterval time.Duration, log *slog.Logger) *Sampler {
	if log == nil {
		log = slog.Default()
	}
	return &Sampler{
		core:         core,
		dev:          dev,
		state:        state,
		barrier:      b,
		events:       events,
		tickInterval: tickInterval,
		safeMSR:      safeMSR,
		log:          log,
	}
}

// Run pins the calling goroutine's OS thread to the sampler's core,
// programs its counters, and loops until ctx is canceled. On cancellation
// it returns only after the safe-restore write has been attempted; a
// pinning or counter-setup error is returned at once, with no restore.
func (s *Sampler) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := pinToCore(s.core); err != nil {
		return err
	}
	if err := s.dev.EnableFixed(s.core); err != nil {
		return err
	}
	if err := s.dev.ConfigureCounters(s.core, s.events); err != nil {
		return err
	}

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.restoreSafe()
			return nil
		case <-ticker.C:
		}

		s.sampleOnce()
		s.barrier.Arrive()

		if s.state.MSRDirty {
			if err := s.dev.Write(s.core, msr.PrefetchControl, s.state.CurrentMSRValue); err != nil {
				s.log.Warn("msr write failed, continuing with stale value", "core", s.core, "err", err)
			} else {
				s.state.MSRDirty = false
			}
		}
	}
}

// sampleOnce reads this core's fixed and programmable counters, computes
// deltas and IPC, and publishes into the shared CoreState. On any read
// error it publishes zeros and logs, leaving fault containment to the
// controller (spec.md §5 fault containment).
func (s *Sampler) sampleOnce() {
	retired, err := s.dev.Read(s.core, msr.FixedCtr0)
	if err != nil {
		s.log.Warn("pmu read failed", "core", s.core, "reg", "FixedCtr0", "err", err)
		s.publishZero()
		return
	}
	cycles, err := s.dev.Read(s.core, msr.FixedCtr1)
	if err != nil {
		s.log.Warn("pmu read failed", "core", s.core, "reg", "FixedCtr1", "err", err)
		s.publishZero()
		return
	}

	var pmu [controlplane.NumCounters]uint64
	for i := 0; i < controlplane.NumCounters && i < len(s.events); i++ {
		v, err := s.dev.Read(s.core, msr.PMC0+msr.Register(i))
		if err != nil {
			s.log.Warn("pmu read failed", "core", s.core, "counter", i, "err", err)
			continue
		}
		pmu[i] = v
	}

	if !s.havePrev {
		s.prevRetired, s.prevCycles, s.prevPMU = retired, cycles, pmu
		s.havePrev = true
		s.state.LastRetiredInstructions = 0
		s.state.LastCycles = 0
		s.state.LastIPC = 0
		s.state.LastPMU = [controlplane.NumCounters]uint64{}
		return
	}

	if retired < s.prevRetired || cycles < s.prevCycles {
		s.log.Warn("counter wrapped since last tick", "core", s.core, "err", msr.ErrCounterOverflow)
	}

	dRetired := util.DeltaU64(retired, s.prevRetired)
	dCycles := util.DeltaU64(cycles, s.prevCycles)
	var dPMU [controlplane.NumCounters]uint64
	for i := range pmu {
		dPMU[i] = util.DeltaU64(pmu[i], s.prevPMU[i])
	}
	s.prevRetired, s.prevCycles, s.prevPMU = retired, cycles, pmu

	s.state.LastRetiredInstructions = dRetired
	s.state.LastCycles = dCycles
	s.state.LastIPC = util.SafeDiv(float64(dRetired), float64(dCycles))
	s.state.LastPMU = dPMU
}

func (s *Sampler) publishZero() {
	s.state.LastRetiredInstructions = 0
	s.state.LastCycles = 0
	s.state.LastIPC = 0
	s.state.LastPMU = [controlplane.NumCounters]uint64{}
}

// restoreSafe writes the arm-0 "safe" MSR value before the sampler exits.
// Every sampler does this for its own core, whether or not it is its
// module's primary core (spec.md §8 scenario 5, §5 cancellation).
func (s *Sampler) restoreSafe() {
	if err := s.dev.Write(s.core, msr.PrefetchControl, s.safeMSR); err != nil {
		s.log.Warn("safe-restore msr write failed on shutdown", "core", s.core, "err", err)
	}
}
