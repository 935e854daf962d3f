// +build linux

package cgroupctl

import (
	"fmt"
	"path/filepath"
)

// CgroupV2 resolves paths inside the unified hierarchy. All controllers
// share one tree, so a single resolver serves memory, cpu and freezer.
type CgroupV2 struct {
	Root string
}

func NewCgroupV2() *CgroupV2 {
	return &CgroupV2{Root: cgroupfsDir}
}

func (c *CgroupV2) RootPath() string {
	return c.Root
}

func (c *CgroupV2) RootMountCmd() string {
	return fmt.Sprintf("mount -t cgroup2 none %s", c.Root)
}

func (c *CgroupV2) ControllersPath() string {
	return filepath.Join(c.Root, cgroupControllersFile)
}

func (c *CgroupV2) NamespacePath() string {
	return filepath.Join(c.Root, namespace)
}

func (c *CgroupV2) ComponentPath(component string) string {
	return filepath.Join(c.NamespacePath(), component)
}
