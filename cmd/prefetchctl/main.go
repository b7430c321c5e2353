//go:build linux

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/prefetchctl/prefetchctl/internal/armtable"
	"github.com/prefetchctl/prefetchctl/internal/bandit"
	"github.com/prefetchctl/prefetchctl/internal/bandwidth"
	"github.com/prefetchctl/prefetchctl/internal/barrier"
	"github.com/prefetchctl/prefetchctl/internal/config"
	"github.com/prefetchctl/prefetchctl/internal/controlplane"
	"github.com/prefetchctl/prefetchctl/internal/heuristic"
	"github.com/prefetchctl/prefetchctl/internal/metrics"
	"github.com/prefetchctl/prefetchctl/internal/msr"
	"github.com/prefetchctl/prefetchctl/internal/sampler"
	"github.com/prefetchctl/prefetchctl/internal/topology"
	"github.com/prefetchctl/prefetchctl/internal/trace"
	"github.com/prefetchctl/prefetchctl/internal/units"
)

type flags struct {
	coreFirst, coreLast int
	interval            time.Duration
	algorithm           string
	aggressiveness      float64
	bwTarget            uint32
	bwMode              string
	defaultPriority     int
	priorities          []string

	epsilon, gamma, c float64
	armConfigFile     string
	reward            string
	dynamicSD         string

	csvPath  string
	jsonPath string
	htmlPath string

	useHelper        bool
	helperPath       string
	dryRun           bool
	selftestDuration time.Duration
}

func main() {
	var f flags

	root := &cobra.Command{
		Use:   "prefetchctl",
		Short: "User-space dynamic hardware-prefetcher controller",
		Long: `prefetchctl observes per-core PMU counters and aggregate DRAM bandwidth
at a fixed sampling cadence and reprograms prefetcher-control MSRs per
module, keeping IPC high while holding bandwidth below a configured target.

It offers two interchangeable control algorithms: a bandwidth-gated
heuristic ladder walk (HEUR) and a contextual multi-armed bandit (MAB).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}

	root.Flags().IntVar(&f.coreFirst, "core-first", -1, "first monitored core (inclusive, -1 = auto-detect)")
	root.Flags().IntVar(&f.coreLast, "core-last", -1, "last monitored core (inclusive, -1 = auto-detect)")
	root.Flags().DurationVarP(&f.interval, "interval", "i", time.Second, "tick interval, clamped to [100us, 60s]")
	root.Flags().StringVarP(&f.algorithm, "algorithm", "a", "heur0", "control algorithm: heur0, heur-prio, mab")
	root.Flags().Float64Var(&f.aggressiveness, "aggressiveness", 1.0, "HEUR ladder step scaling, clamped to [0.1, 5.0]")
	root.Flags().Uint32Var(&f.bwTarget, "bandwidth-target", 0, "DRAM bandwidth target in MB/s (used only with --bw-mode=set)")
	root.Flags().StringVar(&f.bwMode, "bw-mode", "auto-fraction", "bandwidth target mode: set, auto-fraction, self-test")
	root.Flags().IntVar(&f.defaultPriority, "default-priority", 50, "default per-core priority in [0,99]")
	root.Flags().StringSliceVar(&f.priorities, "priority", nil, "per-core priority override, e.g. --priority 4=99 --priority 5=10")

	root.Flags().Float64Var(&f.epsilon, "epsilon", 0.1, "bandit exploration probability in [0,1]")
	root.Flags().Float64Var(&f.gamma, "gamma", 0.959, "bandit reward decay in [0,1]")
	root.Flags().Float64Var(&f.c, "ucb-c", 0.0006, "bandit UCB exploration coefficient")
	root.Flags().StringVar(&f.armConfigFile, "arm-config-file", "", "YAML arm table (empty uses the bundled default)")
	root.Flags().StringVar(&f.reward, "reward", "ipc", "bandit reward shaping: ipc, ipc-over-bandwidth, sd-penalized")
	root.Flags().StringVar(&f.dynamicSD, "dynamic-sd", "off", "bandit standard-deviation context: off, on, step")

	root.Flags().StringVar(&f.csvPath, "csv", "", "write per-tick trace rows to this CSV file")
	root.Flags().StringVar(&f.jsonPath, "json", "", "write per-tick trace rows to this JSON file")
	root.Flags().StringVar(&f.htmlPath, "html", "", "write a summary HTML report to this file")

	root.Flags().BoolVar(&f.useHelper, "use-helper", false, "delegate control to a kernel helper over the proc-file protocol instead of driving MSRs directly")
	root.Flags().StringVar(&f.helperPath, "helper-path", "/proc/prefetchctl/helper", "path to the kernel helper's proc-file endpoint (with --use-helper)")
	root.Flags().BoolVar(&f.dryRun, "dry-run", false, "compute and log decisions without issuing MSR writes")
	root.Flags().DurationVar(&f.selftestDuration, "selftest-duration", 2*time.Second, "duration of the bandwidth calibration sampling for --bw-mode=self-test/auto-fraction")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {
	cfg, err := buildConfig(f)
	if err != nil {
		return err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}

	first, last := cfg.CoreFirst, cfg.CoreLast
	if first < 0 || last < 0 {
		detectedFirst, detectedLast, err := topology.DetectCoreRange()
		if err != nil {
			return fmt.Errorf("topology: %w", err)
		}
		first, last = detectedFirst, detectedLast
	}
	if first > last {
		return &config.ConfigError{Field: "core range", Msg: "no monitored cores discovered"}
	}

	dev := msr.NewLinuxDevice()
	defer dev.Close()

	cores := make([]*controlplane.CoreState, 0, last-first+1)
	coreIDs := make([]int, 0, last-first+1)
	for id := first; id <= last; id++ {
		coreIDs = append(coreIDs, id)
		cores = append(cores, &controlplane.CoreState{
			CoreID:   id,
			ModuleID: id / 4,
			Priority: cfg.PriorityFor(id),
		})
	}
	modules := controlplane.BuildModules(cores)

	probe, err := bandwidth.New(cfg.BandwidthProbeMode, dev, coreIDs)
	if err != nil {
		return fmt.Errorf("bandwidth probe: %w", err)
	}
	defer probe.Close()

	if err := resolveBandwidthTarget(ctx, &cfg, probe, f.selftestDuration); err != nil {
		return fmt.Errorf("bandwidth calibration: %w", err)
	}

	if f.useHelper {
		runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return runWithHelper(runCtx, cfg, coreIDs, f)
	}

	arms := armtable.Default()
	if cfg.ArmConfigFile != "" {
		arms, err = armtable.LoadYAML(cfg.ArmConfigFile)
		if err != nil {
			return fmt.Errorf("arm table: %w", err)
		}
	}
	safeMSR := arms[0].MSRValue

	var controller controlplane.Controller
	var banditCtl *bandit.Controller
	switch cfg.Algorithm {
	case config.MAB:
		banditCtl = bandit.New(bandit.Config{
			Arms:            arms,
			Epsilon:         cfg.Epsilon,
			Gamma:           cfg.Gamma,
			C:               cfg.C,
			Reward:          cfg.Reward,
			DynamicSD:       cfg.DynamicSD,
			WindowSize:      cfg.WindowSize,
			SDPenaltyK:      cfg.SDPenaltyK,
			SDStepThresh:    cfg.SDStepThreshold,
			BandwidthTarget: cfg.BandwidthTargetMBs,
		})
		controller = banditCtl
	default:
		variant := heuristic.Plain
		if cfg.Algorithm == config.HEURPriority {
			variant = heuristic.PriorityScaled
		}
		ladder := ladderFromArms(arms)
		controller = heuristic.New(heuristic.Config{
			Ladder:          ladder,
			Aggressiveness:  cfg.Aggressiveness,
			MarginUpFrac:    0.10,
			MarginDownFrac:  0.05,
			BandwidthTarget: cfg.BandwidthTargetMBs,
			Variant:         variant,
			InitialLevel:    len(ladder) / 2,
		})
		for _, mod := range modules {
			mod.CurrentLadderLevel = len(ladder) / 2
		}
	}

	b := barrier.New(len(cores))
	events := msr.DefaultEvents()

	log := slog.Default()
	var wg sync.WaitGroup
	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for _, cs := range cores {
		s := sampler.New(cs.CoreID, dev, cs, b, events, safeMSR, cfg.TickInterval, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Run(runCtx); err != nil {
				log.Error("sampler exited with error", "core", cs.CoreID, "err", err)
			}
		}()
	}

	acc := metrics.New()
	sink := buildSinks(f, acc)
	defer sink.Close()

	var tick uint64
	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-runCtx.Done():
			log.Info("stopping", "err", controlplane.ErrShutdown)
			wg.Wait()
			printSummary(acc)
			return nil
		case <-ticker.C:
		}

		b.WaitAll()

		mbs, ok, err := probe.SampleMBs(cfg.TickInterval)
		if err != nil {
			log.Warn("bandwidth probe error, holding", "err", err)
		}
		sample := controlplane.TickSample{TickIndex: tick, BandwidthMBs: mbs, BandwidthKnown: ok}

		controller.Tick(sample, cores, modules)

		ipcMean := controlplane.PriorityWeightedMeanIPC(cores)
		acc.Apply(metrics.Sample{IPCMean: ipcMean, BandwidthMBs: mbs, BandwidthOK: ok})
		var reward float64
		if banditCtl != nil {
			reward = banditCtl.LastReward()
			acc.ObserveReward(reward)
		}

		emitRows(sink, sample, ipcMean, reward, modules, cores, tick)

		if f.dryRun {
			for _, mod := range modules {
				if primary := controlplane.PrimaryCore(cores, mod); primary != nil {
					primary.MSRDirty = false
				}
			}
		}

		b.Release()
		tick++
	}
}

func ladderFromArms(arms armtable.Table) []uint64 {
	out := make([]uint64, len(arms))
	for i, a := range arms {
		out[i] = a.MSRValue
	}
	return out
}

func buildSinks(f flags, acc *metrics.Accumulator) *trace.MultiSink {
	var sinks []trace.Sink
	if f.csvPath != "" {
		if s, err := trace.NewCSVSink(f.csvPath); err == nil {
			sinks = append(sinks, s)
		} else {
			slog.Warn("csv sink disabled", "err", err)
		}
	}
	if f.jsonPath != "" {
		if s, err := trace.NewJSONSink(f.jsonPath); err == nil {
			sinks = append(sinks, s)
		} else {
			slog.Warn("json sink disabled", "err", err)
		}
	}
	if f.htmlPath != "" {
		sinks = append(sinks, trace.NewHTMLSink(f.htmlPath, acc))
	}
	return trace.NewMultiSink(sinks...)
}

func emitRows(sink *trace.MultiSink, sample controlplane.TickSample, ipcMean, reward float64, modules []*controlplane.ModuleState, cores []*controlplane.CoreState, tick uint64) {
	now := time.Now()
	for _, mod := range modules {
		primary := controlplane.PrimaryCore(cores, mod)
		var msrVal uint64
		var dirty bool
		if primary != nil {
			msrVal = primary.CurrentMSRValue
			dirty = primary.MSRDirty
		}
		_ = sink.WriteRow(trace.Row{
			At:               now,
			TickIndex:        tick,
			BandwidthMBs:     sample.BandwidthMBs,
			BandwidthKnown:   sample.BandwidthKnown,
			IPCMean:          ipcMean,
			LadderLevel:      mod.CurrentLadderLevel,
			ArmIndex:         mod.CurrentArmIndex,
			Reward:           reward,
			MSRValue:         msrVal,
			MSRWriteOccurred: dirty,
		})
	}
}

func printSummary(acc *metrics.Accumulator) {
	avg := acc.Averages()
	peak := units.MBs(acc.PeakBandwidthMBs())
	minIPC, maxIPC := acc.IPCBounds()
	fmt.Println()
	fmt.Printf("prefetchctl summary (%d ticks):\n", avg.Ticks)
	fmt.Printf("- mean IPC:       %.4f (range %.4f-%.4f)\n", avg.MeanIPC, minIPC, maxIPC)
	fmt.Printf("- mean bandwidth: %.1f MB/s (peak %s)\n", avg.MeanBandwidth, peak.Humanized())
	fmt.Printf("- mean reward:    %.4f\n", avg.MeanReward)
}
