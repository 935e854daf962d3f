// +build linux

package cgroupctl

import (
	"path/filepath"
	"testing"
)

// New picks the controller from what the host kernel exposes, so the
// expectation is derived the same way the selector derives it.
func TestNewSelectsHostHierarchyVersion(t *testing.T) {
	c := New(&fakePlatform{}, &fakeScheduler{})
	if c == nil {
		t.Fatal("New returned nil")
	}

	_, isV2 := c.(*ControllerV2)
	wantV2 := pathExists(filepath.Join(cgroupfsDir, cgroupControllersFile))
	if isV2 != wantV2 {
		t.Fatalf("selected v2=%v, host exposes cgroup.controllers=%v", isV2, wantV2)
	}
	if !isV2 {
		if _, ok := c.(*ControllerV1); !ok {
			t.Fatalf("unexpected controller type %T", c)
		}
	}
}

func TestPathResolvers(t *testing.T) {
	v1 := &CgroupV1{Root: "/sys/fs/cgroup", Subsystem: SubsystemMemory}
	if got := v1.ComponentPath("echo-service"); got != "/sys/fs/cgroup/memory/greengrass/echo-service" {
		t.Fatalf("v1 component path = %q", got)
	}
	if got := v1.SubsystemRootPath(); got != "/sys/fs/cgroup/memory" {
		t.Fatalf("v1 subsystem root = %q", got)
	}

	cpu := &CgroupV1{Root: "/sys/fs/cgroup", Subsystem: SubsystemCPU}
	if got := cpu.SubsystemMountCmd(); got != "mount -t cgroup -o cpu,cpuacct cpu /sys/fs/cgroup/cpu" {
		t.Fatalf("cpu mount cmd = %q", got)
	}

	v2 := &CgroupV2{Root: "/sys/fs/cgroup"}
	if got := v2.ComponentPath("echo-service"); got != "/sys/fs/cgroup/greengrass/echo-service" {
		t.Fatalf("v2 component path = %q", got)
	}
	if got := v2.RootMountCmd(); got != "mount -t cgroup2 none /sys/fs/cgroup" {
		t.Fatalf("v2 root mount cmd = %q", got)
	}
}
