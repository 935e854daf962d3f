package cgroupctl

import (
	"testing"

	"github.com/pkg/errors"
)

func TestCoerceInt64(t *testing.T) {
	cases := []struct {
		in   interface{}
		want int64
	}{
		{int(2048), 2048},
		{int64(2048000), 2048000},
		{float64(512), 512},
		{"2048000", 2048000},
		{" 1024 ", 1024},
	}
	for _, c := range cases {
		got, err := coerceInt64(c.in)
		if err != nil {
			t.Fatalf("coerceInt64(%v): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("coerceInt64(%v) = %d, want %d", c.in, got, c.want)
		}
	}

	for _, in := range []interface{}{"abc", nil, []int{1}} {
		if _, err := coerceInt64(in); err == nil {
			t.Fatalf("coerceInt64(%v): expected error", in)
		}
	}
}

func TestCoerceFloat64(t *testing.T) {
	cases := []struct {
		in   interface{}
		want float64
	}{
		{0.5, 0.5},
		{"0.5", 0.5},
		{int(1), 1.0},
		{float32(0.25), 0.25},
	}
	for _, c := range cases {
		got, err := coerceFloat64(c.in)
		if err != nil {
			t.Fatalf("coerceFloat64(%v): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("coerceFloat64(%v) = %v, want %v", c.in, got, c.want)
		}
	}

	if _, err := coerceFloat64("half"); err == nil {
		t.Fatal("expected error for non-numeric string")
	}
}

func TestValidateComponent(t *testing.T) {
	for _, name := range []string{"echo-service", "a.b", "comp_1"} {
		if err := validateComponent(name); err != nil {
			t.Fatalf("validateComponent(%q): %v", name, err)
		}
	}
	for _, name := range []string{"", ".", "..", "a/b", "a\x00b"} {
		if err := validateComponent(name); !errors.Is(err, ErrInvalidComponent) {
			t.Fatalf("validateComponent(%q) = %v, want ErrInvalidComponent", name, err)
		}
	}
}

func TestParseFreezerState(t *testing.T) {
	cases := map[string]FreezerState{
		"THAWED\n":   Thawed,
		"FREEZING\n": Freezing,
		"FROZEN\n":   Frozen,
		"FROZEN":     Frozen,
	}
	for content, want := range cases {
		got, err := parseFreezerState(content)
		if err != nil {
			t.Fatalf("parseFreezerState(%q): %v", content, err)
		}
		if got != want {
			t.Fatalf("parseFreezerState(%q) = %v, want %v", content, got, want)
		}
	}

	for _, content := range []string{"", "\n", "FROZEN\nTHAWED\n", "melted\n"} {
		if _, err := parseFreezerState(content); !errors.Is(err, ErrMalformedFreezerState) {
			t.Fatalf("parseFreezerState(%q): expected ErrMalformedFreezerState, got %v", content, err)
		}
	}
}

func TestParseFreezeIndex(t *testing.T) {
	cases := map[string]FreezerState{
		"0\n": Thawed,
		"1\n": Frozen,
		"1":   Frozen,
	}
	for content, want := range cases {
		got, err := parseFreezeIndex(content)
		if err != nil {
			t.Fatalf("parseFreezeIndex(%q): %v", content, err)
		}
		if got != want {
			t.Fatalf("parseFreezeIndex(%q) = %v, want %v", content, got, want)
		}
	}

	for _, content := range []string{"2\n", "0\n1\n", "frozen"} {
		if _, err := parseFreezeIndex(content); !errors.Is(err, ErrMalformedFreezerState) {
			t.Fatalf("parseFreezeIndex(%q): expected ErrMalformedFreezerState, got %v", content, err)
		}
	}
}
