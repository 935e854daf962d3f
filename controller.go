// +build linux

package cgroupctl

import (
	"time"
)

// resyncDelay is how long after enrolling a process its membership is
// re-checked. The kernel only inherits cgroup membership for children
// that already exist when their parent is enrolled; a child forked
// concurrently with enrollment is picked up by the re-check.
const resyncDelay = 1 * time.Second

// Controller applies resource limits and lifecycle control to one
// component's process tree. Component names are single path segments;
// names containing a separator or traversal element are rejected with
// ErrInvalidComponent.
//
// UpdateResourceLimits, ResetResourceLimits, RemoveResourceController
// and AddComponentProcess are best-effort: failures are logged with
// component context and returned, and callers that must not abort on a
// limiting failure may ignore the error. Pause and Resume errors must
// not be ignored; a component that should be frozen but is not has to
// be visible to the caller.
type Controller interface {
	// UpdateResourceLimits applies the recognized keys of limits
	// ("memory" in KiB, "cpus" as a fraction of one CPU period) to the
	// component's cgroup, creating it first if needed. Non-positive
	// values are logged and skipped; unknown keys are ignored.
	UpdateResourceLimits(component string, limits map[string]interface{}) error

	// ResetResourceLimits deletes and recreates the component's limit
	// cgroup directories, clearing every previously written limit.
	ResetResourceLimits(component string) error

	// RemoveResourceController deletes the component's cgroup
	// directories. All member processes must already have exited.
	RemoveResourceController(component string) error

	// AddComponentProcess enrolls proc and its live children into the
	// component's cgroups and schedules one delayed re-check.
	AddComponentProcess(component string, proc Process) error

	// PauseComponentProcesses enrolls procs into the freezer cgroup and
	// freezes it, unless it is already frozen.
	PauseComponentProcesses(component string, procs []Process) error

	// ResumeComponentProcesses thaws the component's freezer cgroup,
	// unless it is already thawed.
	ResumeComponentProcesses(component string) error

	// Stats reads the component's current CPU throttling counters and
	// memory usage. Missing files yield zero values.
	Stats(component string) (*Stats, error)
}

// New selects the hierarchy version the host exposes and returns the
// matching controller. The unified hierarchy publishes
// cgroup.controllers at its mountpoint; its presence means v2.
func New(platform Platform, scheduler Scheduler) Controller {
	if pathExists(NewCgroupV2().ControllersPath()) {
		return NewControllerV2(platform, scheduler)
	}
	return NewControllerV1(platform, scheduler)
}
