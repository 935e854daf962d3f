// +build linux

package cgroupctl

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

type pidSet map[int]struct{}

func (s pidSet) equal(other pidSet) bool {
	if len(s) != len(other) {
		return false
	}
	for pid := range s {
		if _, ok := other[pid]; !ok {
			return false
		}
	}
	return true
}

// syncProcs converges the membership of the cgroup at dir onto the
// process and its live children. An absent directory means the
// controller is not enabled for this component and is not an error.
// PIDs are written one per syscall; the procs file accepts exactly one
// PID per write, and a PID that exited between enumeration and write
// must not abort the remaining writes.
func syncProcs(dir, component string, platform Platform, proc Process) error {
	if !pathExists(dir) {
		logrus.WithField("componentName", component).WithField("path", dir).
			Debug("Resource controller is not enabled")
		return nil
	}
	if proc == nil {
		return nil
	}

	children, err := platform.ChildPids(proc.Pid())
	if err != nil {
		return errors.Wrap(err, "listing child processes")
	}
	desired := make(pidSet, len(children)+1)
	for _, pid := range children {
		desired[pid] = struct{}{}
	}
	desired[proc.Pid()] = struct{}{}

	current, err := readProcs(dir)
	if err != nil {
		return err
	}
	if len(desired) == 0 || desired.equal(current) {
		return nil
	}

	// Enrolling a parent makes the kernel inherit membership for later
	// forks, but not for children racing with this very pass.
	for pid := range desired {
		if err := writeCgroupProc(dir, pid); err != nil {
			if isNoSuchProcess(err) {
				logrus.WithField("componentName", component).WithField("pid", pid).
					Warn("Failed to add pid to the cgroup because the process doesn't exist anymore")
				continue
			}
			return err
		}
	}
	return nil
}

func readProcs(dir string) (pidSet, error) {
	content, err := readFile(dir, cgroupProcsFile)
	if err != nil {
		return nil, err
	}
	pids := make(pidSet)
	s := bufio.NewScanner(strings.NewReader(content))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil {
			return nil, errors.Wrapf(err, "malformed pid in %s/%s", dir, cgroupProcsFile)
		}
		pids[pid] = struct{}{}
	}
	return pids, nil
}

// writeCgroupProc enrolls one PID. Attaching can transiently fail with
// EINVAL while the target is being forked, so it retries briefly.
func writeCgroupProc(dir string, pid int) error {
	fd, err := openFile(dir, cgroupProcsFile, os.O_WRONLY)
	if err != nil {
		return errors.Wrapf(err, "failed to write %d to %s", pid, cgroupProcsFile)
	}
	defer fd.Close()

	for i := 0; i < 5; i++ {
		_, err = fd.WriteString(strconv.Itoa(pid))
		if err == nil {
			return nil
		}
		if errors.Is(err, unix.EINVAL) {
			time.Sleep(30 * time.Millisecond)
			continue
		}
		break
	}
	return errors.Wrapf(err, "failed to write %d to %s", pid, cgroupProcsFile)
}

func isNoSuchProcess(err error) bool {
	if errors.Is(err, unix.ESRCH) {
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no such process")
}

// logAddFailure applies the error policy for membership writes: a
// process that exited before it could be enrolled is expected for
// short-lived commands and only worth a warning.
func logAddFailure(err error, component string) {
	if isNoSuchProcess(err) {
		logrus.WithField("componentName", component).
			Warn("Failed to add pid to the cgroup because the process doesn't exist anymore")
		return
	}
	logrus.WithError(err).WithField("componentName", component).
		Error("Failed to add pid to the cgroup")
}

// resyncTracker remembers the pending delayed membership re-checks per
// component so removal can cancel them.
type resyncTracker struct {
	pending map[string][]func()
}

func (r *resyncTracker) add(component string, cancel func()) {
	if r.pending == nil {
		r.pending = make(map[string][]func())
	}
	r.pending[component] = append(r.pending[component], cancel)
}

func (r *resyncTracker) cancel(component string) {
	for _, cancel := range r.pending[component] {
		cancel()
	}
	delete(r.pending, component)
}
