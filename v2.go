// +build linux

package cgroupctl

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// subtreeControlContent delegates the controllers components need. The
// unified hierarchy requires delegation at every ancestor before a
// child directory can use a controller.
const subtreeControlContent = "+cpuset +cpu +io +memory +pids"

// ControllerV2 drives the unified hierarchy: one tree, all controllers
// delegated per directory, freezer built in as cgroup.freeze.
type ControllerV2 struct {
	platform  Platform
	scheduler Scheduler
	paths     *CgroupV2

	mu      sync.Mutex
	resyncs resyncTracker
}

func NewControllerV2(platform Platform, scheduler Scheduler) *ControllerV2 {
	return newControllerV2(cgroupfsDir, platform, scheduler)
}

func newControllerV2(root string, platform Platform, scheduler Scheduler) *ControllerV2 {
	return &ControllerV2{
		platform:  platform,
		scheduler: scheduler,
		paths:     &CgroupV2{Root: root},
	}
}

func (c *ControllerV2) initializeCgroup(component string) error {
	mounts, err := mountedPaths()
	if err != nil {
		return err
	}

	if _, ok := mounts[c.paths.RootPath()]; !ok {
		if err := c.platform.RunCmd(c.paths.RootMountCmd(), "Failed to mount cgroup2 root"); err != nil {
			logrus.WithError(err).Warn("Failed to mount cgroup2 root")
		}
		if err := os.MkdirAll(c.paths.RootPath(), 0o755); err != nil {
			return errors.Wrap(err, "creating cgroup2 root")
		}
	}

	if err := writeFile(c.paths.RootPath(), subtreeControlFile, subtreeControlContent); err != nil {
		return err
	}
	if err := os.MkdirAll(c.paths.NamespacePath(), 0o755); err != nil {
		return errors.Wrap(err, "creating cgroup namespace directory")
	}
	if err := writeFile(c.paths.NamespacePath(), subtreeControlFile, subtreeControlContent); err != nil {
		return err
	}
	if err := os.MkdirAll(c.paths.ComponentPath(component), 0o755); err != nil {
		return errors.Wrap(err, "creating component cgroup directory")
	}
	return nil
}

func (c *ControllerV2) UpdateResourceLimits(component string, limits map[string]interface{}) error {
	if err := validateComponent(component); err != nil {
		return err
	}
	err := c.applyLimits(component, limits)
	if err != nil {
		logrus.WithError(err).WithField("componentName", component).
			Error("Failed to apply resource limits")
	}
	return err
}

func (c *ControllerV2) applyLimits(component string, limits map[string]interface{}) error {
	dir := c.paths.ComponentPath(component)
	if !pathExists(dir) {
		if err := c.initializeCgroup(component); err != nil {
			return err
		}
	}

	if raw, ok := limits[MemoryKey]; ok {
		memoryLimitKB, err := coerceInt64(raw)
		if err != nil || memoryLimitKB <= 0 {
			logrus.WithField("componentName", component).WithField(MemoryKey, raw).
				Warn("The provided memory limit is invalid")
		} else if err := writeFile(dir, memoryMaxFile, strconv.FormatInt(memoryLimitKB*1024, 10)); err != nil {
			return err
		}
	}

	if raw, ok := limits[CPUsKey]; ok {
		cpus, err := coerceFloat64(raw)
		if err != nil || cpus <= 0 {
			logrus.WithField("componentName", component).WithField(CPUsKey, raw).
				Warn("The provided cpu limit is invalid")
		} else if err := c.writeCPUMax(dir, cpus); err != nil {
			return err
		}
	}
	return nil
}

// writeCPUMax rewrites cpu.max as "<quota> <period>". The period token
// is carried over from the existing content; a file without both tokens
// falls back to an unset quota over the default period.
func (c *ControllerV2) writeCPUMax(dir string, cpus float64) error {
	content, err := readString(dir, cpuMaxFile)
	if err != nil {
		return err
	}
	quotaStr, periodStr := "max", "100000"
	if fields := strings.Fields(content); len(fields) >= 2 {
		periodStr = fields[1]
		period, err := strconv.ParseInt(periodStr, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "malformed %s content %q", cpuMaxFile, content)
		}
		quotaStr = strconv.FormatInt(int64(math.Round(float64(period)*cpus)), 10)
	}
	return writeFile(dir, cpuMaxFile, fmt.Sprintf("%s %s", quotaStr, periodStr))
}

func (c *ControllerV2) ResetResourceLimits(component string) error {
	if err := validateComponent(component); err != nil {
		return err
	}
	dir := c.paths.ComponentPath(component)
	if !pathExists(dir) {
		return nil
	}
	err := os.RemoveAll(dir)
	if err == nil {
		err = os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		logrus.WithError(err).WithField("componentName", component).
			Error("Failed to reset the resource controller")
	}
	return err
}

func (c *ControllerV2) RemoveResourceController(component string) error {
	if err := validateComponent(component); err != nil {
		return err
	}
	c.mu.Lock()
	c.resyncs.cancel(component)
	c.mu.Unlock()

	if err := os.RemoveAll(c.paths.ComponentPath(component)); err != nil {
		logrus.WithError(err).WithField("componentName", component).
			Error("Failed to remove the resource controller")
		return err
	}
	return nil
}

func (c *ControllerV2) AddComponentProcess(component string, proc Process) error {
	if err := validateComponent(component); err != nil {
		return err
	}
	dir := c.paths.ComponentPath(component)
	if err := syncProcs(dir, component, c.platform, proc); err != nil {
		logAddFailure(err, component)
		return err
	}

	cancel := c.scheduler.Schedule(resyncDelay, func() {
		if err := syncProcs(dir, component, c.platform, proc); err != nil {
			logAddFailure(err, component)
		}
	})
	c.mu.Lock()
	c.resyncs.add(component, cancel)
	c.mu.Unlock()
	return nil
}

func (c *ControllerV2) PauseComponentProcesses(component string, procs []Process) error {
	if err := validateComponent(component); err != nil {
		return err
	}
	if err := c.initializeCgroup(component); err != nil {
		return err
	}
	dir := c.paths.ComponentPath(component)
	for _, proc := range procs {
		if err := syncProcs(dir, component, c.platform, proc); err != nil {
			return err
		}
	}

	state, err := c.freezerState(component)
	if err != nil {
		return err
	}
	if state == Frozen {
		return nil
	}
	return writeFile(dir, cgroupFreezeFile, freezeIndexFrozen)
}

func (c *ControllerV2) ResumeComponentProcesses(component string) error {
	if err := validateComponent(component); err != nil {
		return err
	}
	state, err := c.freezerState(component)
	if err != nil {
		return err
	}
	if state == Thawed {
		return nil
	}
	return writeFile(c.paths.ComponentPath(component), cgroupFreezeFile, freezeIndexThawed)
}

func (c *ControllerV2) freezerState(component string) (FreezerState, error) {
	content, err := readFile(c.paths.ComponentPath(component), cgroupFreezeFile)
	if err != nil {
		return Undefined, err
	}
	return parseFreezeIndex(content)
}

func (c *ControllerV2) Stats(component string) (*Stats, error) {
	if err := validateComponent(component); err != nil {
		return nil, err
	}
	dir := c.paths.ComponentPath(component)
	stats := &Stats{}
	if err := readCPUStat(dir, &stats.CPU); err != nil {
		return nil, err
	}
	if err := readMemoryUsage(dir, memoryCurrentFile, &stats.Memory); err != nil {
		return nil, err
	}
	return stats, nil
}
