package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccumulator_Averages(t *testing.T) {
	a := New()
	a.Apply(Sample{IPCMean: 1.0, BandwidthMBs: 1000, BandwidthOK: true})
	a.Apply(Sample{IPCMean: 2.0, BandwidthMBs: 2000, BandwidthOK: true})
	a.Apply(Sample{IPCMean: 3.0, BandwidthOK: false})

	avg := a.Averages()
	assert.Equal(t, 3, avg.Ticks)
	assert.InDelta(t, 2.0, avg.MeanIPC, 1e-9)
	assert.InDelta(t, 1500.0, avg.MeanBandwidth, 1e-9, "bandwidth-unknown ticks are excluded from the mean")

	min, max := a.IPCBounds()
	assert.Equal(t, 1.0, min)
	assert.Equal(t, 3.0, max)
	assert.Equal(t, uint32(2000), a.PeakBandwidthMBs())
}

func TestAccumulator_RewardOnlyFromObserveReward(t *testing.T) {
	a := New()
	a.Apply(Sample{IPCMean: 1.0})
	a.ObserveReward(0.8)
	a.ObserveReward(1.2)

	assert.InDelta(t, 1.0, a.Averages().MeanReward, 1e-9)
}

func TestAccumulator_EmptyIsZeroValued(t *testing.T) {
	a := New()
	avg := a.Averages()
	assert.Equal(t, Averages{}, avg)
}
