package cgroupctl

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FreezerState is the freezer state of a component cgroup. The v1
// hierarchy reports the literal names below; FREEZING is transient and
// only ever read back from the kernel, never written.
type FreezerState string

const (
	Undefined FreezerState = ""
	Thawed    FreezerState = "THAWED"
	Freezing  FreezerState = "FREEZING"
	Frozen    FreezerState = "FROZEN"
)

// v2 writes the freezer state as an index into cgroup.freeze.
const (
	freezeIndexThawed = "0"
	freezeIndexFrozen = "1"
)

// Recognized keys of a resource limit request. Unknown keys are ignored.
const (
	MemoryKey = "memory" // positive integer, kibibytes
	CPUsKey   = "cpus"   // positive fraction of one CPU period
)

var (
	ErrInvalidComponent      = errors.New("invalid component name")
	ErrMalformedFreezerState = errors.New("unexpected freezer cgroup state")
)

// validateComponent rejects names that cannot be used as a single path
// segment. Names come from an upstream component registry, but a stray
// separator here would escape the namespace directory.
func validateComponent(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\x00") {
		return errors.Wrapf(ErrInvalidComponent, "%q", name)
	}
	return nil
}

func parseFreezerState(content string) (FreezerState, error) {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) != 1 || strings.TrimSpace(lines[0]) == "" {
		return Undefined, errors.Wrapf(ErrMalformedFreezerState, "%q", content)
	}
	switch state := strings.TrimSpace(lines[0]); state {
	case string(Thawed):
		return Thawed, nil
	case string(Freezing):
		return Freezing, nil
	case string(Frozen):
		return Frozen, nil
	default:
		return Undefined, errors.Wrapf(ErrMalformedFreezerState, "%q", state)
	}
}

func parseFreezeIndex(content string) (FreezerState, error) {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) != 1 {
		return Undefined, errors.Wrapf(ErrMalformedFreezerState, "%q", content)
	}
	switch state := strings.TrimSpace(lines[0]); state {
	case freezeIndexThawed:
		return Thawed, nil
	case freezeIndexFrozen:
		return Frozen, nil
	default:
		return Undefined, errors.Wrapf(ErrMalformedFreezerState, "%q", state)
	}
}

// coerceInt64 accepts the integer representations a limit map may carry.
// Limits are handed around upstream as generic documents, so numeric
// values show up as strings or floats as often as ints.
func coerceInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case float32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	default:
		return 0, errors.Errorf("cannot coerce %T to int64", v)
	}
}

func coerceFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, errors.Errorf("cannot coerce %T to float64", v)
	}
}
