// +build linux

package cgroupctl

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type ThrottlingData struct {
	Periods          uint64 `json:"periods,omitempty"`
	ThrottledPeriods uint64 `json:"throttled_periods,omitempty"`
	ThrottledTime    uint64 `json:"throttled_time,omitempty"`
}

type CPUStats struct {
	Throttling ThrottlingData `json:"throttling_data,omitempty"`
}

type MemoryStats struct {
	UsageBytes uint64 `json:"usage,omitempty"`
}

// Stats is a point-in-time usage readout for one component.
type Stats struct {
	CPU    CPUStats    `json:"cpu_stats,omitempty"`
	Memory MemoryStats `json:"memory_stats,omitempty"`
}

// readCPUStat fills out from the cpu.stat file in dir. The file is
// key/value lines in both hierarchy versions; v1 reports throttled_time
// in nanoseconds where v2 reports throttled_usec. An absent file means
// the controller is not active there and yields zero values.
func readCPUStat(dir string, out *CPUStats) error {
	f, err := openFile(dir, cpuStatFile, os.O_RDONLY)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) != 2 {
			continue
		}
		value, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return errors.Wrapf(err, "malformed %s entry %q", cpuStatFile, s.Text())
		}
		switch fields[0] {
		case "nr_periods":
			out.Throttling.Periods = value
		case "nr_throttled":
			out.Throttling.ThrottledPeriods = value
		case "throttled_time", "throttled_usec":
			out.Throttling.ThrottledTime = value
		}
	}
	return s.Err()
}

// readMemoryUsage reads the current usage file in dir, tolerating its
// absence.
func readMemoryUsage(dir, file string, out *MemoryStats) error {
	usage, err := readInt(dir, file)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil
		}
		return err
	}
	if usage > 0 {
		out.UsageBytes = uint64(usage)
	}
	return nil
}
