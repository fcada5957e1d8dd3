package version

import (
	"errors"
	"sort"
	"testing"

	"github.com/starford/quarry/internal/apperr"
	"github.com/starford/quarry/internal/target"
)

func TestParse(t *testing.T) {
	for _, s := range []string{"0.0.1", "1.2.3", "1.0.0-beta.1", "1.0.0+build.5", "10.20.30-rc.1+sha.abc"} {
		v, err := Parse(s)
		if err != nil {
			t.Errorf("Parse(%q): %v", s, err)
			continue
		}
		if v.String() != s {
			t.Errorf("String() = %q, want %q", v.String(), s)
		}
	}

	for _, s := range []string{"", "1", "1.2", "v1.2.3", "01.2.3", "1.2.3.4", "latest", "1.2.x"} {
		_, err := Parse(s)
		if err == nil {
			t.Errorf("Parse(%q) should fail", s)
			continue
		}
		var pe *ParseError
		if !errors.As(err, &pe) || pe.Input != s {
			t.Errorf("Parse(%q) err = %v, want ParseError naming the input", s, err)
		}
		if !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Parse(%q) err should be invalid input", s)
		}
	}
}

func TestCompare(t *testing.T) {
	ordered := []string{"0.9.0", "1.0.0-alpha", "1.0.0-beta", "1.0.0", "1.0.0+a", "1.0.0+b", "1.2.0", "1.10.0"}
	vs := make([]Version, len(ordered))
	for i := len(ordered) - 1; i >= 0; i-- {
		vs[len(ordered)-1-i] = MustParse(ordered[i])
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].Compare(vs[j]) < 0 })
	for i, v := range vs {
		if v.String() != ordered[i] {
			t.Errorf("sorted[%d] = %q, want %q", i, v, ordered[i])
		}
	}

	m, ok := Max([]Version{MustParse("1.0.0"), MustParse("1.2.0"), MustParse("1.1.9")})
	if !ok || m.String() != "1.2.0" {
		t.Errorf("Max = %q, %v", m, ok)
	}
	if _, ok := Max(nil); ok {
		t.Error("Max(nil) should report false")
	}
}

func TestID(t *testing.T) {
	id, err := ParseID("1.2.3 lune")
	if err != nil {
		t.Fatalf("ParseID: %v", err)
	}
	if id.Version.String() != "1.2.3" || id.Target != target.Lune {
		t.Errorf("ParseID = %+v", id)
	}
	if id.String() != "1.2.3 lune" {
		t.Errorf("String() = %q", id.String())
	}

	for _, s := range []string{"1.2.3", "1.2.3+lune", "1.2.3 wasm", "x lune"} {
		if _, err := ParseID(s); !errors.Is(err, ErrInvalidID) {
			t.Errorf("ParseID(%q) err = %v, want ErrInvalidID", s, err)
		}
	}

	a := NewID(MustParse("2.0.0"), target.Luau)
	b := NewID(MustParse("2.0.0"), target.Roblox)
	c := NewID(MustParse("1.0.0"), target.Luau)
	if a.Compare(b) <= 0 {
		t.Error("roblox sorts before luau for the same version")
	}
	if c.Compare(b) >= 0 {
		t.Error("version orders before target")
	}
}
