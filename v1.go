// +build linux

package cgroupctl

import (
	"math"
	"os"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ControllerV1 drives the legacy multi-hierarchy: one mount per
// subsystem, with memory and cpu carrying the limits and freezer
// carrying pause/resume.
type ControllerV1 struct {
	platform  Platform
	scheduler Scheduler

	memory  *CgroupV1
	cpu     *CgroupV1
	freezer *CgroupV1

	mu      sync.Mutex
	used    map[Subsystem]*CgroupV1
	resyncs resyncTracker
}

func NewControllerV1(platform Platform, scheduler Scheduler) *ControllerV1 {
	return newControllerV1(cgroupfsDir, platform, scheduler)
}

func newControllerV1(root string, platform Platform, scheduler Scheduler) *ControllerV1 {
	return &ControllerV1{
		platform:  platform,
		scheduler: scheduler,
		memory:    &CgroupV1{Root: root, Subsystem: SubsystemMemory},
		cpu:       &CgroupV1{Root: root, Subsystem: SubsystemCPU},
		freezer:   &CgroupV1{Root: root, Subsystem: SubsystemFreezer},
		used:      make(map[Subsystem]*CgroupV1),
	}
}

// limitCgroups are the hierarchies that participate in resource
// limiting; the freezer is managed separately by pause/resume.
func (c *ControllerV1) limitCgroups() []*CgroupV1 {
	return []*CgroupV1{c.memory, c.cpu}
}

// initializeCgroup makes sure the subsystem hierarchy is mounted and
// the namespace and component directories exist. Mount failures are
// tolerated: a hierarchy mounted manually ahead of time does not show
// up as our mount command succeeding, only as the directories working.
func (c *ControllerV1) initializeCgroup(component string, cg *CgroupV1) error {
	mounts, err := mountedPaths()
	if err != nil {
		return err
	}

	if _, ok := mounts[cg.RootPath()]; !ok {
		if err := c.platform.RunCmd(cg.RootMountCmd(), "Failed to mount cgroup root"); err != nil {
			logrus.WithError(err).Warn("Failed to mount cgroup root")
		}
		if err := os.MkdirAll(cg.SubsystemRootPath(), 0o755); err != nil {
			return errors.Wrap(err, "creating cgroup subsystem root")
		}
	}
	if _, ok := mounts[cg.SubsystemRootPath()]; !ok {
		if err := c.platform.RunCmd(cg.SubsystemMountCmd(), "Failed to mount cgroup subsystem"); err != nil {
			logrus.WithError(err).Warn("Failed to mount cgroup subsystem")
		}
	}
	if err := os.MkdirAll(cg.NamespacePath(), 0o755); err != nil {
		return errors.Wrap(err, "creating cgroup namespace directory")
	}
	if err := os.MkdirAll(cg.ComponentPath(component), 0o755); err != nil {
		return errors.Wrap(err, "creating component cgroup directory")
	}

	c.mu.Lock()
	c.used[cg.Subsystem] = cg
	c.mu.Unlock()
	return nil
}

func (c *ControllerV1) UpdateResourceLimits(component string, limits map[string]interface{}) error {
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

func (c *ControllerV1) applyLimits(component string, limits map[string]interface{}) error {
	if err := c.updateMemoryLimit(component, limits); err != nil {
		return err
	}
	return c.updateCPULimit(component, limits)
}

func (c *ControllerV1) updateMemoryLimit(component string, limits map[string]interface{}) error {
	dir := c.memory.ComponentPath(component)
	if !pathExists(dir) {
		if err := c.initializeCgroup(component, c.memory); err != nil {
			return err
		}
	}
	raw, ok := limits[MemoryKey]
	if !ok {
		return nil
	}
	memoryLimitKB, err := coerceInt64(raw)
	if err != nil || memoryLimitKB <= 0 {
		logrus.WithField("componentName", component).WithField(MemoryKey, raw).
			Warn("The provided memory limit is invalid")
		return nil
	}
	return writeFile(dir, memoryLimitFile, strconv.FormatInt(memoryLimitKB*1024, 10))
}

func (c *ControllerV1) updateCPULimit(component string, limits map[string]interface{}) error {
	dir := c.cpu.ComponentPath(component)
	if !pathExists(dir) {
		if err := c.initializeCgroup(component, c.cpu); err != nil {
			return err
		}
	}
	raw, ok := limits[CPUsKey]
	if !ok {
		return nil
	}
	cpus, err := coerceFloat64(raw)
	if err != nil || cpus <= 0 {
		logrus.WithField("componentName", component).WithField(CPUsKey, raw).
			Warn("The provided cpu limit is invalid")
		return nil
	}

	// The quota is derived from whatever period the kernel already has;
	// the period file is never modified.
	period, err := readInt(dir, cpuPeriodFile)
	if err != nil {
		return err
	}
	quota := int64(math.Round(float64(period) * cpus))
	return writeFile(dir, cpuQuotaFile, strconv.FormatInt(quota, 10))
}

// ResetResourceLimits clears limits by deleting and recreating each
// limit cgroup directory rather than resetting control files to kernel
// defaults one by one.
func (c *ControllerV1) ResetResourceLimits(component string) error {
	if err := validateComponent(component); err != nil {
		return err
	}
	var firstErr error
	for _, cg := range c.limitCgroups() {
		dir := cg.ComponentPath(component)
		if !pathExists(dir) {
			continue
		}
		err := os.RemoveAll(dir)
		if err == nil {
			err = os.MkdirAll(dir, 0o755)
		}
		if err != nil {
			logrus.WithError(err).WithField("componentName", component).
				Error("Failed to reset the resource controller")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// RemoveResourceController deletes the component's directory in every
// subsystem this instance ever initialized. Member processes must
// already have exited; that is the caller's responsibility.
func (c *ControllerV1) RemoveResourceController(component string) error {
	if err := validateComponent(component); err != nil {
		return err
	}
	c.mu.Lock()
	c.resyncs.cancel(component)
	used := make([]*CgroupV1, 0, len(c.used))
	for _, cg := range c.used {
		used = append(used, cg)
	}
	c.mu.Unlock()

	var firstErr error
	for _, cg := range used {
		if err := os.RemoveAll(cg.ComponentPath(component)); err != nil {
			logrus.WithError(err).WithField("componentName", component).
				Error("Failed to remove the resource controller")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (c *ControllerV1) AddComponentProcess(component string, proc Process) error {
	if err := validateComponent(component); err != nil {
		return err
	}
	pass := func() error {
		for _, cg := range c.limitCgroups() {
			if err := syncProcs(cg.ComponentPath(component), component, c.platform, proc); err != nil {
				return err
			}
		}
		return nil
	}
	if err := pass(); err != nil {
		logAddFailure(err, component)
		return err
	}

	cancel := c.scheduler.Schedule(resyncDelay, func() {
		if err := pass(); err != nil {
			logAddFailure(err, component)
		}
	})
	c.mu.Lock()
	c.resyncs.add(component, cancel)
	c.mu.Unlock()
	return nil
}

func (c *ControllerV1) PauseComponentProcesses(component string, procs []Process) error {
	if err := validateComponent(component); err != nil {
		return err
	}
	if err := c.initializeCgroup(component, c.freezer); err != nil {
		return err
	}
	dir := c.freezer.ComponentPath(component)
	for _, proc := range procs {
		if err := syncProcs(dir, component, c.platform, proc); err != nil {
			return err
		}
	}

	state, err := c.freezerState(component)
	if err != nil {
		return err
	}
	// FREEZING still needs the write repeated; only an exact FROZEN
	// match short-circuits.
	if state == Frozen {
		return nil
	}
	return writeFile(dir, freezerStateFile, string(Frozen))
}

func (c *ControllerV1) ResumeComponentProcesses(component string) error {
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
	return writeFile(c.freezer.ComponentPath(component), freezerStateFile, string(Thawed))
}

// freezerState reads the component's freezer.state. The file must hold
// exactly one known state name; anything else is an error because the
// freezer state must never be guessed.
func (c *ControllerV1) freezerState(component string) (FreezerState, error) {
	content, err := readFile(c.freezer.ComponentPath(component), freezerStateFile)
	if err != nil {
		return Undefined, err
	}
	return parseFreezerState(content)
}

func (c *ControllerV1) Stats(component string) (*Stats, error) {
	if err := validateComponent(component); err != nil {
		return nil, err
	}
	stats := &Stats{}
	if err := readCPUStat(c.cpu.ComponentPath(component), &stats.CPU); err != nil {
		return nil, err
	}
	if err := readMemoryUsage(c.memory.ComponentPath(component), memoryUsageFile, &stats.Memory); err != nil {
		return nil, err
	}
	return stats, nil
}
