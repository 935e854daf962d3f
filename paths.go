// +build linux

package cgroupctl

import (
	"fmt"
	"path/filepath"
)

// Control file names shared by the resolvers.
const (
	cgroupProcsFile       = "cgroup.procs"
	memoryLimitFile       = "memory.limit_in_bytes"
	memoryUsageFile       = "memory.usage_in_bytes"
	cpuPeriodFile         = "cpu.cfs_period_us"
	cpuQuotaFile          = "cpu.cfs_quota_us"
	cpuStatFile           = "cpu.stat"
	freezerStateFile      = "freezer.state"
	memoryMaxFile         = "memory.max"
	memoryCurrentFile     = "memory.current"
	cpuMaxFile            = "cpu.max"
	cgroupFreezeFile      = "cgroup.freeze"
	cgroupControllersFile = "cgroup.controllers"
	subtreeControlFile    = "cgroup.subtree_control"
)

// namespace is the directory owned by this runtime inside every
// hierarchy; components live one level below it.
const namespace = "greengrass"

// Subsystem is a v1 cgroup controller with its own hierarchy.
type Subsystem int

const (
	SubsystemMemory Subsystem = iota
	SubsystemCPU
	SubsystemFreezer
)

func (s Subsystem) String() string {
	switch s {
	case SubsystemMemory:
		return "memory"
	case SubsystemCPU:
		return "cpu"
	case SubsystemFreezer:
		return "freezer"
	default:
		return "unknown"
	}
}

// mountOpts is the controller list passed to mount(8) for this
// subsystem's hierarchy.
func (s Subsystem) mountOpts() string {
	if s == SubsystemCPU {
		return "cpu,cpuacct"
	}
	return s.String()
}

// CgroupV1 resolves paths inside one v1 subsystem hierarchy. It is pure
// string assembly; no method touches the filesystem.
type CgroupV1 struct {
	Root      string
	Subsystem Subsystem
}

func (c *CgroupV1) RootPath() string {
	return c.Root
}

func (c *CgroupV1) RootMountCmd() string {
	return fmt.Sprintf("mount -t tmpfs cgroup %s", c.Root)
}

func (c *CgroupV1) SubsystemRootPath() string {
	return filepath.Join(c.Root, c.Subsystem.String())
}

func (c *CgroupV1) SubsystemMountCmd() string {
	return fmt.Sprintf("mount -t cgroup -o %s %s %s",
		c.Subsystem.mountOpts(), c.Subsystem.String(), c.SubsystemRootPath())
}

func (c *CgroupV1) NamespacePath() string {
	return filepath.Join(c.SubsystemRootPath(), namespace)
}

func (c *CgroupV1) ComponentPath(component string) string {
	return filepath.Join(c.NamespacePath(), component)
}
