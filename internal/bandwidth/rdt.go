package bandwidth

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prefetchctl/prefetchctl/internal/util"
)

const resctrlRoot = "/sys/fs/resctrl"

// rdtProbe reads per-domain memory-bandwidth-monitoring counters exposed by
// the kernel's resctrl pseudo-filesystem (mon_data/mon_L3_*/mbm_total_bytes),
// the same mountinfo-probing idiom the teacher uses to detect cgroup v2
// (pkg/system/cgroup.Detect / pkg/system/proc.isCgroup2Mounted), applied
// here to resctrl instead.
type rdtProbe struct {
	domainFiles []string
	prev        map[string]uint64
	have        bool
}

func newRDTProbe(cores []int) (Probe, error) {
	if !resctrlMounted() {
		return nil, ErrNoResctrl
	}
	domains, err := filepath.Glob(filepath.Join(resctrlRoot, "mon_data", "mon_L3_*", "mbm_total_bytes"))
	if err != nil {
		return nil, fmt.Errorf("bandwidth: glob resctrl mon_data: %w", err)
	}
	if len(domains) == 0 {
		return nil, ErrNoResctrl
	}
	return &rdtProbe{domainFiles: domains, prev: make(map[string]uint64, len(domains))}, nil
}

func resctrlMounted() bool {
	f, err := os.Open("/proc/self/mountinfo")
	if err != nil {
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		sep := " - "
		i := strings.LastIndex(line, sep)
		if i < 0 {
			continue
		}
		pre := strings.Fields(line[:i])
		if len(pre) < 5 {
			continue
		}
		mountPoint := pre[4]
		tail := strings.Fields(line[i+len(sep):])
		if len(tail) < 1 {
			continue
		}
		if mountPoint == resctrlRoot && tail[0] == "resctrl" {
			return true
		}
	}
	return false
}

func (p *rdtProbe) SampleMBs(interval time.Duration) (uint32, bool, error) {
	if interval <= 0 {
		return 0, false, nil
	}
	var totalBytes uint64
	read := 0
	for _, path := range p.domainFiles {
		now, err := readCounterFile(path)
		if err != nil {
			continue
		}
		read++
		if p.have {
			totalBytes += util.DeltaU64(now, p.prev[path])
		}
		p.prev[path] = now
	}
	if read == 0 {
		return 0, false, nil
	}
	if !p.have {
		p.have = true
		return 0, false, nil
	}

	mbs := float64(totalBytes) / 1e6 / interval.Seconds()
	return uint32(mbs), true, nil
}

func (p *rdtProbe) Close() error { return nil }

func readCounterFile(path string) (uint64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bandwidth: parse %s: %w", path, err)
	}
	return v, nil
}
