// +build linux

package cgroupctl

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func init() {
	TestMode = true
}

type fakePlatform struct {
	children map[int][]int
	childErr error
	cmds     []string
	cmdErr   error
}

func (p *fakePlatform) ChildPids(pid int) ([]int, error) {
	if p.childErr != nil {
		return nil, p.childErr
	}
	return p.children[pid], nil
}

func (p *fakePlatform) RunCmd(cmd string, desc string) error {
	p.cmds = append(p.cmds, cmd)
	return p.cmdErr
}

type fakeScheduler struct {
	delays   []time.Duration
	tasks    []func()
	canceled int
}

func (s *fakeScheduler) Schedule(delay time.Duration, fn func()) func() {
	s.delays = append(s.delays, delay)
	s.tasks = append(s.tasks, fn)
	return func() { s.canceled++ }
}

// fire runs every pending task, emulating the delays elapsing.
func (s *fakeScheduler) fire() {
	tasks := s.tasks
	s.tasks = nil
	for _, fn := range tasks {
		fn()
	}
}

type testRig struct {
	root      string
	platform  *fakePlatform
	scheduler *fakeScheduler
	t         *testing.T
}

func newTestRig(t *testing.T) *testRig {
	root, err := ioutil.TempDir("", "cgroupctl_test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(root) })
	return &testRig{
		root:      root,
		platform:  &fakePlatform{children: map[int][]int{}},
		scheduler: &fakeScheduler{},
		t:         t,
	}
}

func (r *testRig) v1() *ControllerV1 {
	return newControllerV1(r.root, r.platform, r.scheduler)
}

func (r *testRig) v2() *ControllerV2 {
	return newControllerV2(r.root, r.platform, r.scheduler)
}

// mkdir creates a directory below the rig root.
func (r *testRig) mkdir(path string) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		r.t.Fatal(err)
	}
}

// seed writes the given control files into dir, creating it if needed.
func (r *testRig) seed(dir string, files map[string]string) {
	r.mkdir(dir)
	for file, content := range files {
		if err := ioutil.WriteFile(filepath.Join(dir, file), []byte(content), 0o644); err != nil {
			r.t.Fatal(err)
		}
	}
}

func (r *testRig) content(dir, file string) string {
	content, err := ioutil.ReadFile(filepath.Join(dir, file))
	if err != nil {
		r.t.Fatalf("reading %s/%s: %v", dir, file, err)
	}
	return string(content)
}

func (r *testRig) exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
