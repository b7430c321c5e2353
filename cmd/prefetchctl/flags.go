package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/prefetchctl/prefetchctl/internal/bandit"
	"github.com/prefetchctl/prefetchctl/internal/bandwidth"
	"github.com/prefetchctl/prefetchctl/internal/config"
)

// buildConfig translates the parsed CLI flags into a config.Config, doing
// only the string-to-enum and per-core-priority parsing that cobra's flag
// types can't express directly. Range/value validation is left to
// config.Config.Validate.
func buildConfig(f flags) (config.Config, error) {
	c := config.Default()

	c.CoreFirst = f.coreFirst
	c.CoreLast = f.coreLast
	c.TickInterval = f.interval
	c.Aggressiveness = f.aggressiveness
	c.BandwidthTargetMBs = f.bwTarget
	c.DefaultPriority = f.defaultPriority
	c.Epsilon = f.epsilon
	c.Gamma = f.gamma
	c.C = f.c
	c.ArmConfigFile = f.armConfigFile

	algo, err := parseAlgorithm(f.algorithm)
	if err != nil {
		return c, err
	}
	c.Algorithm = algo

	bwMode, err := parseBandwidthMode(f.bwMode)
	if err != nil {
		return c, err
	}
	c.BandwidthMode = bwMode
	c.BandwidthProbeMode = bandwidth.ModeAuto

	reward, err := parseReward(f.reward)
	if err != nil {
		return c, err
	}
	c.Reward = reward

	sd, err := parseDynamicSD(f.dynamicSD)
	if err != nil {
		return c, err
	}
	c.DynamicSD = sd

	priorities, err := parsePriorities(f.priorities)
	if err != nil {
		return c, err
	}
	c.Priorities = priorities

	return c, nil
}

func parseAlgorithm(s string) (config.Algorithm, error) {
	switch s {
	case "heur0", "heur", "":
		return config.HEUR0, nil
	case "heur-prio", "heur-priority":
		return config.HEURPriority, nil
	case "mab", "bandit":
		return config.MAB, nil
	default:
		return 0, &config.ConfigError{Field: "algorithm", Msg: "must be one of: heur0, heur-prio, mab (got " + s + ")"}
	}
}

func parseBandwidthMode(s string) (config.BandwidthMode, error) {
	switch s {
	case "set":
		return config.BandwidthSet, nil
	case "auto-fraction", "auto", "":
		return config.BandwidthAutoFraction, nil
	case "self-test":
		return config.BandwidthSelfTest, nil
	default:
		return 0, &config.ConfigError{Field: "bandwidth-mode", Msg: "must be one of: set, auto-fraction, self-test (got " + s + ")"}
	}
}

func parseReward(s string) (bandit.RewardType, error) {
	switch s {
	case "ipc", "":
		return bandit.RewardIPC, nil
	case "ipc-over-bandwidth":
		return bandit.RewardIPCOverBandwidth, nil
	case "sd-penalized":
		return bandit.RewardSDPenalized, nil
	default:
		return 0, &config.ConfigError{Field: "reward", Msg: "must be one of: ipc, ipc-over-bandwidth, sd-penalized (got " + s + ")"}
	}
}

func parseDynamicSD(s string) (bandit.DynamicSD, error) {
	switch s {
	case "off", "":
		return bandit.SDOff, nil
	case "on":
		return bandit.SDOn, nil
	case "step":
		return bandit.SDStep, nil
	default:
		return 0, &config.ConfigError{Field: "dynamic-sd", Msg: "must be one of: off, on, step (got " + s + ")"}
	}
}

// parsePriorities turns "core=priority" pairs (e.g. "4=99") into the map
// consumed by config.Config.Priorities.
func parsePriorities(pairs []string) (map[int]int, error) {
	out := map[int]int{}
	for _, p := range pairs {
		eq := strings.IndexByte(p, '=')
		if eq < 0 {
			return nil, fmt.Errorf("priority %q: expected core=priority", p)
		}
		core, err := strconv.Atoi(strings.TrimSpace(p[:eq]))
		if err != nil {
			return nil, fmt.Errorf("priority %q: bad core id: %w", p, err)
		}
		prio, err := strconv.Atoi(strings.TrimSpace(p[eq+1:]))
		if err != nil {
			return nil, fmt.Errorf("priority %q: bad priority value: %w", p, err)
		}
		out[core] = prio
	}
	return out, nil
}
