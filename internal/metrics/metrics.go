// Package metrics tracks per-run running averages, the same accumulator
// shape the teacher uses for cumulative energy and average power
// (pkg/consumption.Accumulator), repurposed here for bandwidth, IPC and
// bandit reward.
package metrics

// Sample is one tick's worth of observable values, fed into an
// Accumulator after the controller has run.
type Sample struct {
	IPCMean      float64
	BandwidthMBs uint32
	BandwidthOK  bool
	Reward       float64 // 0 for HEUR ticks
	LadderLevel  int     // HEUR only
	ArmIndex     int     // MAB only
}

// Averages is the run-level summary returned by Accumulator.Averages.
type Averages struct {
	MeanIPC       float64
	MeanBandwidth float64
	MeanReward    float64
	Ticks int
}

// Accumulator keeps running sums across ticks; Apply is called once per
// tick after the controller phase completes.
type Accumulator struct {
	ticks           int
	sumIPC          float64
	sumBandwidth    float64
	bandwidthTicks  int
	sumReward       float64
	rewardTicks     int
	peakBandwidth   uint32
	minIPC, maxIPC  float64
	haveIPCBounds   bool
}

// New returns an empty Accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// Apply folds one tick's Sample into the running totals.
func (a *Accumulator) Apply(s Sample) {
	a.ticks++
	a.sumIPC += s.IPCMean
	if !a.haveIPCBounds {
		a.minIPC, a.maxIPC = s.IPCMean, s.IPCMean
		a.haveIPCBounds = true
	} else {
		if s.IPCMean < a.minIPC {
			a.minIPC = s.IPCMean
		}
		if s.IPCMean > a.maxIPC {
			a.maxIPC = s.IPCMean
		}
	}

	if s.BandwidthOK {
		a.sumBandwidth += float64(s.BandwidthMBs)
		a.bandwidthTicks++
		if s.BandwidthMBs > a.peakBandwidth {
			a.peakBandwidth = s.BandwidthMBs
		}
	}

	// Reward only applies to MAB ticks; HEUR ticks pass Reward: 0 and are
	// excluded from the reward average by convention (rewardTicks stays
	// untouched unless the caller opts in via ObserveReward).
}

// ObserveReward folds a bandit reward into the running reward average,
// called separately from Apply so HEUR runs never pollute MeanReward with
// zeroes.
func (a *Accumulator) ObserveReward(r float64) {
	a.sumReward += r
	a.rewardTicks++
}

// Averages returns the run's summary statistics.
func (a *Accumulator) Averages() Averages {
	out := Averages{Ticks: a.ticks}
	if a.ticks > 0 {
		out.MeanIPC = a.sumIPC / float64(a.ticks)
	}
	if a.bandwidthTicks > 0 {
		out.MeanBandwidth = a.sumBandwidth / float64(a.bandwidthTicks)
	}
	if a.rewardTicks > 0 {
		out.MeanReward = a.sumReward / float64(a.rewardTicks)
	}
	return out
}

// IPCBounds returns the minimum and maximum observed fleet IPC this run.
func (a *Accumulator) IPCBounds() (min, max float64) {
	return a.minIPC, a.maxIPC
}

// PeakBandwidthMBs returns the highest single-tick bandwidth reading seen.
func (a *Accumulator) PeakBandwidthMBs() uint32 {
	return a.peakBandwidth
}
