//go:build linux

// Package topology resolves the default monitored core range. It does not
// attempt to classify efficiency vs. performance cores (that classification
// is an external collaborator per the controller's scope); it only answers
// "which cores is this process actually allowed to touch", which is the
// scheduling affinity mask as constrained by any enclosing cgroup cpuset.
package topology

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// CPUSetMode describes which cgroup cpuset hierarchy (if any) is mounted.
type CPUSetMode int

const (
	// Unconstrained means no cgroup cpuset controller was found, or this
	// isn't Linux; the affinity mask reflects the full machine.
	Unconstrained CPUSetMode = iota
	// V1 means a legacy cgroup v1 cpuset controller is mounted.
	V1
	// V2 means the unified cgroup v2 hierarchy is mounted (cpuset is a
	// controller within it, not a separate mount).
	V2
)

func (m CPUSetMode) String() string {
	switch m {
	case V1:
		return "cgroup v1 cpuset"
	case V2:
		return "cgroup v2 unified"
	default:
		return "unconstrained"
	}
}

// DetectCPUSetMode inspects /proc/self/mountinfo for a cpuset (v1) or
// cgroup2 (v2) mount. It never fails fatally: an unreadable mountinfo is
// reported as Unconstrained, since the affinity mask below is the
// authoritative source of truth regardless.
func DetectCPUSetMode() CPUSetMode {
	f, err := os.Open("/proc/self/mountinfo")
	if err != nil {
		return Unconstrained
	}
	defer func() { _ = f.Close() }()

	var hasV1, hasV2 bool
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		sep := " - "
		i := strings.LastIndex(line, sep)
		if i < 0 {
			continue
		}
		tail := strings.Fields(line[i+len(sep):])
		if len(tail) == 0 {
			continue
		}
		switch tail[0] {
		case "cgroup2":
			hasV2 = true
		case "cgroup":
			pre := strings.Fields(line[:i])
			// superopts (last field of pre-separator part preceding fstype)
			// are not present in all kernels' mountinfo layout for cgroup1;
			// the presence of a "cpuset" token anywhere in the remaining
			// fields of this line is sufficient.
			if len(pre) > 0 && strings.Contains(line, "cpuset") {
				hasV1 = true
			}
		}
	}
	switch {
	case hasV2:
		return V2
	case hasV1:
		return V1
	default:
		return Unconstrained
	}
}

// TopologyError is the fatal-at-startup error category from spec.md §7:
// the affinity mask this process was handed is unusable (empty, or the
// kernel call to read it failed outright).
type TopologyError struct {
	Op  string
	Msg string
}

func (e *TopologyError) Error() string {
	return "topology: " + e.Op + ": " + e.Msg
}

// DetectCoreRange returns the smallest contiguous [first,last] range that
// covers every core this process's scheduling affinity mask allows. Gaps
// inside the mask (e.g. a cpuset of "0-1,4-5") are included in the range;
// the sampler treats cores it cannot pin to as a fatal TopologyError at
// startup, which surfaces a misconfigured cpuset immediately rather than
// silently skipping cores.
func DetectCoreRange() (first, last int, err error) {
	var set unix.CPUSet
	if e := unix.SchedGetaffinity(0, &set); e != nil {
		return 0, 0, &TopologyError{Op: "sched_getaffinity", Msg: e.Error()}
	}

	first, last = -1, -1
	for i := 0; i < len(set)*64; i++ {
		if set.IsSet(i) {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	if first == -1 {
		return 0, 0, &TopologyError{Op: "affinity mask", Msg: "empty"}
	}
	return first, last, nil
}

// ParseList parses a Linux list-format cpu range string ("0-3,8,10-12") into
// a sorted slice of distinct core ids, as found in cpuset.cpus /
// cpuset.cpus.effective files.
func ParseList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	set := map[int]struct{}{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if dash := strings.IndexByte(part, '-'); dash >= 0 {
			lo, err := strconv.Atoi(part[:dash])
			if err != nil {
				return nil, fmt.Errorf("topology: bad range %q: %w", part, err)
			}
			hi, err := strconv.Atoi(part[dash+1:])
			if err != nil {
				return nil, fmt.Errorf("topology: bad range %q: %w", part, err)
			}
			for i := lo; i <= hi; i++ {
				set[i] = struct{}{}
			}
		} else {
			v, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("topology: bad core id %q: %w", part, err)
			}
			set[v] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out, nil
}
