// Package bandit implements MAB, the ε-greedy / UCB contextual bandit over
// a fixed arm table (spec.md §4.6). It is the heaviest of the two control
// algorithms.
package bandit

import (
	"math"
	"math/rand"
	"time"

	"github.com/prefetchctl/prefetchctl/internal/armtable"
	"github.com/prefetchctl/prefetchctl/internal/controlplane"
	"github.com/prefetchctl/prefetchctl/internal/util"
)

// RewardType selects the raw-reward shaping function (spec.md §4.6 step 3).
type RewardType int

const (
	RewardIPC RewardType = iota
	RewardIPCOverBandwidth
	RewardSDPenalized
)

// DynamicSD selects whether sliding-window standard deviation context is
// computed and, if so, whether it additionally rate-limits arm changes.
type DynamicSD int

const (
	SDOff DynamicSD = iota
	SDOn
	SDStep
)

// Config holds MAB's tunables (spec.md §4.6, §4.7).
type Config struct {
	Arms armtable.Table

	Epsilon float64 // [0,1], default 0.1
	Gamma   float64 // (0,1), default 0.959
	C       float64 // >=0, default 0.0006

	Reward RewardType

	DynamicSD    DynamicSD
	WindowSize   int     // W, sliding window of ipc_mean samples
	SDPenaltyK   float64 // k in r = ipc_mean - k*sigma
	SDStepThresh float64 // STEP mode rate-limit threshold

	BandwidthTarget uint32

	// Rand drives exploration; if nil a time-seeded source is used. Inject
	// a seeded *rand.Rand for reproducible runs (spec.md §8 scenario 6).
	Rand *rand.Rand
}

// Controller is the MAB control algorithm. A single Controller instance
// drives every module: spec.md §4.6 states the same arm index applies to
// all modules for a given tick, so runtime state lives here rather than
// per-module.
type Controller struct {
	cfg Config
	rng *rand.Rand

	tick       uint64
	prevArm    int
	haveArm    bool
	window     []float64
	windowFull bool
	sigma      float64
	prevSigma  float64
	haveSigma  bool
	lastReward float64
}

// New constructs a MAB controller. cfg.Arms must be non-empty.
func New(cfg Config) *Controller {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Controller{cfg: cfg, rng: rng}
}

// Tick implements controlplane.Controller.
func (c *Controller) Tick(sample controlplane.TickSample, cores []*controlplane.CoreState, modules []*controlplane.ModuleState) {
	ipcMean := controlplane.PriorityWeightedMeanIPC(cores)

	if c.cfg.DynamicSD != SDOff {
		c.pushWindow(ipcMean)
	}

	r := c.reward(ipcMean, sample)
	c.lastReward = r

	if c.haveArm {
		a := &c.cfg.Arms[c.prevArm]
		a.RewardEstimate = c.cfg.Gamma*a.RewardEstimate + (1-c.cfg.Gamma)*r
		a.SelectionCount++
	}

	arm := c.selectArm()

	if c.cfg.DynamicSD == SDStep && c.haveArm && c.haveSigma {
		if math.Abs(c.sigma-c.prevSigma) <= c.cfg.SDStepThresh {
			arm = c.prevArm
		}
	}

	c.cfg.Arms[arm].LastSelectedTick = c.tick

	msrVal := c.cfg.Arms[arm].MSRValue
	for _, mod := range modules {
		mod.CurrentArmIndex = arm
		primary := controlplane.PrimaryCore(cores, mod)
		if primary == nil {
			continue
		}
		if primary.CurrentMSRValue != msrVal {
			primary.CurrentMSRValue = msrVal
			primary.MSRDirty = true
		} else {
			primary.MSRDirty = false
		}
	}

	c.prevArm = arm
	c.haveArm = true
	c.tick++
}

// LastReward returns the reward computed on the most recent Tick, for
// metrics and tracing. It is zero before the first Tick.
func (c *Controller) LastReward() float64 {
	return c.lastReward
}

// reward computes the raw, then bandwidth-penalized, reward for this tick
// per spec.md §4.6 step 3.
func (c *Controller) reward(ipcMean float64, sample controlplane.TickSample) float64 {
	var r float64
	switch c.cfg.Reward {
	case RewardIPCOverBandwidth:
		bw := float64(sample.BandwidthMBs)
		if bw < 1 {
			bw = 1
		}
		r = ipcMean / bw
	case RewardSDPenalized:
		if c.windowFull {
			r = ipcMean - c.cfg.SDPenaltyK*c.sigma
		} else {
			r = ipcMean
		}
	default:
		r = ipcMean
	}

	if sample.BandwidthKnown && c.cfg.BandwidthTarget > 0 && float64(sample.BandwidthMBs) > float64(c.cfg.BandwidthTarget) {
		bw := float64(sample.BandwidthMBs)
		if bw < 1 {
			bw = 1
		}
		r *= float64(c.cfg.BandwidthTarget) / bw
	}
	return r
}

// pushWindow maintains the fixed-size sliding window of ipc_mean samples
// and, once full, recomputes the sample standard deviation (spec.md §4.6
// step 2).
func (c *Controller) pushWindow(ipcMean float64) {
	w := c.cfg.WindowSize
	if w <= 0 {
		w = 1
	}
	c.window = append(c.window, ipcMean)
	if len(c.window) > w {
		c.window = c.window[len(c.window)-w:]
	}
	if len(c.window) == w {
		c.windowFull = true
		c.prevSigma = c.sigma
		c.sigma = util.StdDev(c.window)
		c.haveSigma = true
	}
}

// selectArm implements spec.md §4.6 step 5: first tick always picks arm 0;
// afterward ε-greedy with a UCB exploration bonus, ties broken by lower
// index, unvisited arms treated as +∞.
func (c *Controller) selectArm() int {
	if !c.haveArm {
		return 0
	}
	if c.cfg.Epsilon > 0 && c.rng.Float64() < c.cfg.Epsilon {
		return c.rng.Intn(len(c.cfg.Arms))
	}

	best := 0
	bestScore := math.Inf(-1)
	lnT := math.Log(float64(c.tick))
	if c.tick == 0 {
		lnT = 0
	}
	for i := range c.cfg.Arms {
		var bonus float64
		if c.cfg.Arms[i].SelectionCount == 0 || c.tick == 0 {
			bonus = math.Inf(1)
		} else {
			bonus = c.cfg.C * math.Sqrt(lnT/float64(c.cfg.Arms[i].SelectionCount))
		}
		score := c.cfg.Arms[i].RewardEstimate + bonus
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}
