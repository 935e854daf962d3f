// +build linux

package cgroupctl

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const mountsPath = "/proc/self/mounts"

// octalSpace is how the kernel escapes a literal space in a mount path.
const octalSpace = `\040`

// mountedPaths reads the live mount table and returns the set of mount
// points. The set is recomputed on every call; mount state is never
// cached across initializations.
func mountedPaths() (map[string]struct{}, error) {
	f, err := os.Open(mountsPath)
	if err != nil {
		return nil, errors.Wrap(err, "reading mount table")
	}
	defer f.Close()
	return parseMounts(f)
}

// parseMounts parses fstab-style records: six space-separated fields per
// line, the second being the mount point with spaces escaped as \040.
// Truncated lines are skipped rather than failing the whole read.
func parseMounts(r io.Reader) (map[string]struct{}, error) {
	mounts := make(map[string]struct{})
	s := bufio.NewScanner(r)
	for s.Scan() {
		fields := strings.Split(s.Text(), " ")
		if len(fields) < 6 {
			continue
		}
		mounts[strings.ReplaceAll(fields[1], octalSpace, " ")] = struct{}{}
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "reading mount table")
	}
	return mounts, nil
}
