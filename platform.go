// +build linux

package cgroupctl

import (
	"io/ioutil"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Process is the handle the supervision layer has for a component's
// root process. Only the PID is needed here.
type Process interface {
	Pid() int
}

// ProcessFromPid wraps a bare PID as a Process.
func ProcessFromPid(pid int) Process {
	return pidProcess(pid)
}

type pidProcess int

func (p pidProcess) Pid() int { return int(p) }

// Platform is the host capability surface this package depends on:
// enumerating a process's live children and running privileged shell
// commands (mounting cgroup filesystems needs root).
type Platform interface {
	// ChildPids returns the live transitive child PIDs of pid, not
	// including pid itself.
	ChildPids(pid int) ([]int, error)
	// RunCmd runs cmd through a shell. desc is a human-readable
	// description included in the failure.
	RunCmd(cmd string, desc string) error
}

// Scheduler submits a callback to run once after a delay. The returned
// func cancels the callback if it has not fired yet.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) (cancel func())
}

// LinuxPlatform implements Platform against /proc and /bin/sh.
type LinuxPlatform struct{}

func NewLinuxPlatform() *LinuxPlatform {
	return &LinuxPlatform{}
}

// ChildPids walks /proc/<pid>/task/*/children breadth-first. Processes
// that exit mid-walk simply drop out of the result.
func (p *LinuxPlatform) ChildPids(pid int) ([]int, error) {
	var pids []int
	queue := []int{pid}
	seen := map[int]struct{}{pid: {}}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, child := range directChildren(next) {
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			pids = append(pids, child)
			queue = append(queue, child)
		}
	}
	return pids, nil
}

func directChildren(pid int) []int {
	taskDir := filepath.Join("/proc", strconv.Itoa(pid), "task")
	tasks, err := ioutil.ReadDir(taskDir)
	if err != nil {
		// Already exited.
		return nil
	}
	var children []int
	for _, task := range tasks {
		content, err := ioutil.ReadFile(filepath.Join(taskDir, task.Name(), "children"))
		if err != nil {
			continue
		}
		for _, field := range strings.Fields(string(content)) {
			child, err := strconv.Atoi(field)
			if err != nil {
				continue
			}
			children = append(children, child)
		}
	}
	return children
}

func (p *LinuxPlatform) RunCmd(cmd string, desc string) error {
	out, err := exec.Command("sh", "-c", cmd).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "%s: %s", desc, strings.TrimSpace(string(out)))
	}
	return nil
}

// timerScheduler is the default Scheduler, backed by time.AfterFunc.
type timerScheduler struct{}

func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) Schedule(delay time.Duration, fn func()) func() {
	t := time.AfterFunc(delay, fn)
	return func() { t.Stop() }
}
