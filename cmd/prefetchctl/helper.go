package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prefetchctl/prefetchctl/internal/config"
	"github.com/prefetchctl/prefetchctl/internal/controlplane"
	"github.com/prefetchctl/prefetchctl/internal/helperproto"
	"github.com/prefetchctl/prefetchctl/internal/metrics"
	"github.com/prefetchctl/prefetchctl/internal/trace"
	"github.com/prefetchctl/prefetchctl/internal/util"
)

// runWithHelper delegates control to a privileged kernel helper reachable
// over a single proc-file endpoint, per SPEC_FULL.md §6. The helper owns
// the prefetcher-control decision entirely once tuning is enabled; this
// process only pushes the static configuration (core range, per-core
// weights, bandwidth target) and polls MSR state for the trace sinks and
// end-of-run summary. It is the "used instead of" half of the
// alongside-or-instead-of wording: when a helper is present, the
// user-space sampler/barrier/controller path never runs.
//
// Only ReadMSR is polled; PMU_READ is never issued. ReadMSR is read as the
// two architectural fixed counters
// (instructions retired, unhalted cycles), matching FixedCtr0/FixedCtr1
// order. The protocol table (spec.md §6) does not pin these down, so this
// is a documented convention rather than a spec guarantee.
func runWithHelper(ctx context.Context, cfg config.Config, coreIDs []int, f flags) error {
	ep, err := os.OpenFile(f.helperPath, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("helper: open %s: %w", f.helperPath, err)
	}
	defer ep.Close()

	client := helperproto.NewClient(ep)
	log := slog.Default()

	version, err := client.Init()
	if err != nil {
		return fmt.Errorf("helper: init: %w", err)
	}
	log.Info("helper handshake complete", "protocol_version", version)

	first, last := uint32(coreIDs[0]), uint32(coreIDs[len(coreIDs)-1])
	if _, _, _, err := client.SetCoreRange(first, last); err != nil {
		return fmt.Errorf("helper: set core range: %w", err)
	}

	weights := make([]uint32, len(coreIDs))
	for i, id := range coreIDs {
		weights[i] = uint32(cfg.PriorityFor(id))
	}
	if _, err := client.SetCoreWeights(weights); err != nil {
		return fmt.Errorf("helper: set core weights: %w", err)
	}

	if _, err := client.SetDDRBandwidthTarget(cfg.BandwidthTargetMBs); err != nil {
		return fmt.Errorf("helper: set bandwidth target: %w", err)
	}

	if !f.dryRun {
		if _, err := client.SetTuning(true); err != nil {
			return fmt.Errorf("helper: enable tuning: %w", err)
		}
		defer func() {
			if _, err := client.SetTuning(false); err != nil {
				log.Warn("helper: disable tuning on shutdown failed", "err", err)
			}
		}()
	}

	acc := metrics.New()
	sink := buildSinks(f, acc)
	defer sink.Close()

	prevRetired := make(map[int]uint64, len(coreIDs))
	prevCycles := make(map[int]uint64, len(coreIDs))

	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			log.Info("stopping", "err", controlplane.ErrShutdown)
			printSummary(acc)
			return nil
		case <-ticker.C:
		}

		var ipcSum float64
		for _, id := range coreIDs {
			fixed, err := client.ReadMSR(uint32(id), 2)
			if err != nil {
				log.Warn("helper: read fixed counters failed", "core", id, "err", err)
				continue
			}
			retired, cycles := fixed[0], fixed[1]
			dRetired := util.DeltaU64(retired, prevRetired[id])
			dCycles := util.DeltaU64(cycles, prevCycles[id])
			prevRetired[id], prevCycles[id] = retired, cycles
			ipcSum += util.SafeDiv(float64(dRetired), float64(dCycles))
		}
		ipcMean := util.SafeDiv(ipcSum, float64(len(coreIDs)))

		acc.Apply(metrics.Sample{IPCMean: ipcMean, BandwidthOK: false})
		_ = sink.WriteRow(trace.Row{
			At:        time.Now(),
			TickIndex: tick,
			IPCMean:   ipcMean,
		})
		tick++
	}
}
