// +build linux

package cgroupctl

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"sync"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	cgroupfsDir    = "/sys/fs/cgroup"
	cgroupfsPrefix = cgroupfsDir + "/"
)

var (
	// TestMode makes writes create and truncate control files, so tests
	// can run against plain directories instead of a cgroup mount.
	TestMode bool

	cgroupFd     int = -1
	prepOnce     sync.Once
	prepErr      error
	resolveFlags uint64
)

func prepareOpenat2() error {
	prepOnce.Do(func() {
		fd, err := unix.Openat2(-1, cgroupfsDir, &unix.OpenHow{
			Flags: unix.O_DIRECTORY | unix.O_PATH})
		if err != nil {
			prepErr = &os.PathError{Op: "openat2", Path: cgroupfsDir, Err: err}
			if err != unix.ENOSYS {
				logrus.WithError(prepErr).Warn("falling back to securejoin")
			} else {
				logrus.Debug("openat2 not available, falling back to securejoin")
			}
			return
		}
		var st unix.Statfs_t
		if err = unix.Fstatfs(fd, &st); err != nil {
			prepErr = &os.PathError{Op: "statfs", Path: cgroupfsDir, Err: err}
			logrus.WithError(prepErr).Warn("falling back to securejoin")
			return
		}

		cgroupFd = fd

		resolveFlags = unix.RESOLVE_BENEATH | unix.RESOLVE_NO_MAGICLINKS
		if st.Type == unix.CGROUP2_SUPER_MAGIC {
			// The unified hierarchy has a single mountpoint and no
			// "cpu,cpuacct" style symlinks.
			resolveFlags |= unix.RESOLVE_NO_XDEV | unix.RESOLVE_NO_SYMLINKS
		}
	})

	return prepErr
}

// openFile opens a control file inside dir. Opens under the cgroup
// mountpoint go through openat2 with RESOLVE_BENEATH where the kernel
// supports it; anything else falls back to a securejoin'd OpenFile.
func openFile(dir, file string, flags int) (*os.File, error) {
	if dir == "" {
		return nil, errors.Errorf("no directory specified for %s", file)
	}
	mode := os.FileMode(0)
	if TestMode && flags&os.O_WRONLY != 0 {
		flags |= os.O_TRUNC | os.O_CREATE
		mode = 0o600
	}
	reldir := strings.TrimPrefix(dir, cgroupfsPrefix)
	if len(reldir) == len(dir) {
		return openFallback(dir, file, flags, mode)
	}
	if prepareOpenat2() != nil {
		return openFallback(dir, file, flags, mode)
	}

	relname := reldir + "/" + file
	fd, err := unix.Openat2(cgroupFd, relname,
		&unix.OpenHow{
			Resolve: resolveFlags,
			Flags:   uint64(flags) | unix.O_CLOEXEC,
			Mode:    uint64(mode),
		})
	if err != nil {
		return nil, &os.PathError{Op: "openat2", Path: dir + "/" + file, Err: err}
	}

	return os.NewFile(uintptr(fd), cgroupfsPrefix+relname), nil
}

func openFallback(dir, file string, flags int, mode os.FileMode) (*os.File, error) {
	path, err := securejoin.SecureJoin(dir, file)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(path, flags, mode)
}

// writeFile overwrites a control file in dir with data. Control files
// take each write as a whole value, so no truncation is needed on a
// real cgroup mount.
func writeFile(dir, file, data string) error {
	fd, err := openFile(dir, file, unix.O_WRONLY)
	if err != nil {
		return err
	}
	defer fd.Close()
	if err := retryingWrite(fd, data); err != nil {
		return errors.Wrapf(err, "failed to write %q", data)
	}
	return nil
}

// readFile reads the full content of a control file in dir.
func readFile(dir, file string) (string, error) {
	fd, err := openFile(dir, file, unix.O_RDONLY)
	if err != nil {
		return "", err
	}
	defer fd.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(fd)
	return buf.String(), err
}

func retryingWrite(fd *os.File, data string) error {
	for {
		_, err := fd.Write([]byte(data))
		if errors.Is(err, unix.EINTR) {
			logrus.Infof("interrupted while writing %s to %s", data, fd.Name())
			continue
		}
		return err
	}
}

// readString reads a control file and trims surrounding whitespace.
func readString(dir, file string) (string, error) {
	content, err := readFile(dir, file)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// readInt reads a control file holding a single decimal integer.
func readInt(dir, file string) (int64, error) {
	content, err := readString(dir, file)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(content, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to parse %s/%s", dir, file)
	}
	return value, nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
