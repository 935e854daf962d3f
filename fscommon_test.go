// +build linux

package cgroupctl

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileOverwrites(t *testing.T) {
	dir, err := ioutil.TempDir("", "cgroupctl_fscommon")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	if err := writeFile(dir, "cgroup.file", "100000"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(dir, "cgroup.file", "42"); err != nil {
		t.Fatal(err)
	}

	content, err := ioutil.ReadFile(filepath.Join(dir, "cgroup.file"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "42" {
		t.Fatalf("content = %q, want %q", content, "42")
	}
}

func TestReadInt(t *testing.T) {
	dir, err := ioutil.TempDir("", "cgroupctl_fscommon")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	// Control files usually carry a trailing newline.
	if err := ioutil.WriteFile(filepath.Join(dir, "cgroup.file"), []byte("100000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	value, err := readInt(dir, "cgroup.file")
	if err != nil {
		t.Fatal(err)
	}
	if value != 100000 {
		t.Fatalf("value = %d, want 100000", value)
	}

	if err := ioutil.WriteFile(filepath.Join(dir, "cgroup.file"), []byte("not-a-number"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readInt(dir, "cgroup.file"); err == nil {
		t.Fatal("expected parse error")
	}

	if _, err := readInt(dir, "missing.file"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReadStringTrims(t *testing.T) {
	dir, err := ioutil.TempDir("", "cgroupctl_fscommon")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	if err := ioutil.WriteFile(filepath.Join(dir, "cgroup.file"), []byte("  max 100000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	content, err := readString(dir, "cgroup.file")
	if err != nil {
		t.Fatal(err)
	}
	if content != "max 100000" {
		t.Fatalf("content = %q", content)
	}
}

func TestOpenFileRejectsEmptyDir(t *testing.T) {
	if _, err := openFile("", "cgroup.procs", os.O_RDONLY); err == nil {
		t.Fatal("expected error for empty directory")
	}
}
