// Package version implements semantic versions and the version+target
// composite key used by the package index.
package version

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/starford/quarry/internal/apperr"
)

// ErrInvalidVersion is wrapped by ParseError.
var ErrInvalidVersion = errors.New("invalid semantic version")

// ParseError reports an input that is not a MAJOR.MINOR.PATCH version.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid semantic version %q", e.Input)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrInvalidVersion, apperr.ErrInvalidInput}
}

// Version is a semantic version without the "v" prefix. It is comparable;
// two versions are equal when their text is equal, build metadata included.
type Version struct {
	raw string
}

// Parse validates s as MAJOR.MINOR.PATCH[-pre][+build].
func Parse(s string) (Version, error) {
	v := "v" + s
	if s == "" || strings.HasPrefix(s, "v") || !semver.IsValid(v) {
		return Version{}, &ParseError{Input: s}
	}
	// semver accepts the "v1" and "v1.2" shorthands.
	core := strings.TrimSuffix(strings.TrimSuffix(v, semver.Build(v)), semver.Prerelease(v))
	if strings.Count(core, ".") != 2 {
		return Version{}, &ParseError{Input: s}
	}
	return Version{raw: s}, nil
}

// MustParse is Parse for constants in tests and fixtures.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string { return v.raw }

// IsZero reports whether v was never set.
func (v Version) IsZero() bool { return v.raw == "" }

// Build returns the build suffix including the leading "+".
func (v Version) Build() string { return semver.Build("v" + v.raw) }

// Compare orders by semantic version precedence. Versions of equal
// precedence are ordered by build metadata text so the order is total.
func (v Version) Compare(o Version) int {
	if c := semver.Compare("v"+v.raw, "v"+o.raw); c != 0 {
		return c
	}
	return strings.Compare(v.Build(), o.Build())
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) { return []byte(v.raw), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(b []byte) error {
	p, err := Parse(string(b))
	if err != nil {
		return err
	}
	*v = p
	return nil
}

// Max returns the greatest version under Compare, or false for no input.
func Max(vs []Version) (Version, bool) {
	if len(vs) == 0 {
		return Version{}, false
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v.Compare(m) > 0 {
			m = v
		}
	}
	return m, true
}
