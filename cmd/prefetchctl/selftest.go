package main

import (
	"context"
	"time"

	"github.com/prefetchctl/prefetchctl/internal/bandwidth"
	"github.com/prefetchctl/prefetchctl/internal/config"
)

// calibrateBandwidthTarget is the bandwidth self-test of SPEC_FULL.md §6.
// It generates no memory load of its own: it samples probe at the tick
// interval for duration, keeps the highest observed reading as the
// measured peak, and returns AutoFractionOfMax of that peak. It is used both for
// --bw-mode=self-test and, absent a DMI-reported maximum to scale from, for
// --bw-mode=auto-fraction as well.
func calibrateBandwidthTarget(ctx context.Context, probe bandwidth.Probe, interval, duration time.Duration) (uint32, error) {
	deadline := time.Now().Add(duration)
	var peak uint32

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return peak, ctx.Err()
		case <-ticker.C:
		}
		mbs, ok, err := probe.SampleMBs(interval)
		if err != nil {
			return peak, err
		}
		if ok && mbs > peak {
			peak = mbs
		}
	}
	return uint32(float64(peak) * config.AutoFractionOfMax), nil
}

// resolveBandwidthTarget fills in cfg.BandwidthTargetMBs when the chosen
// mode requires measuring it rather than taking it verbatim from
// --bandwidth-target.
func resolveBandwidthTarget(ctx context.Context, cfg *config.Config, probe bandwidth.Probe, selftestDuration time.Duration) error {
	if cfg.BandwidthMode == config.BandwidthSet {
		return nil
	}
	target, err := calibrateBandwidthTarget(ctx, probe, cfg.TickInterval, selftestDuration)
	if err != nil {
		return err
	}
	cfg.BandwidthTargetMBs = target
	return nil
}
