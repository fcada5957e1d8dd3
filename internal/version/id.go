package version

import (
	"errors"
	"fmt"
	"strings"

	"github.com/starford/quarry/internal/apperr"
	"github.com/starford/quarry/internal/target"
)

// ErrInvalidID is wrapped by IDError.
var ErrInvalidID = errors.New("invalid version id")

// IDError reports a malformed "{version} {target}" key.
type IDError struct {
	Input string
	Err   error
}

func (e *IDError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid version id %q", e.Input)
	}
	return fmt.Sprintf("invalid version id %q: %v", e.Input, e.Err)
}

func (e *IDError) Unwrap() []error {
	return []error{ErrInvalidID, apperr.ErrInvalidInput}
}

// ID identifies one published version of a package for one target kind.
type ID struct {
	Version Version
	Target  target.Kind
}

// NewID builds an ID.
func NewID(v Version, k target.Kind) ID {
	return ID{Version: v, Target: k}
}

// ParseID parses the "{version} {target}" form.
func ParseID(s string) (ID, error) {
	vs, ks, ok := strings.Cut(s, " ")
	if !ok {
		return ID{}, &IDError{Input: s, Err: errors.New("expected \"{version} {target}\"")}
	}
	v, err := Parse(vs)
	if err != nil {
		return ID{}, &IDError{Input: s, Err: err}
	}
	k, err := target.ParseKind(ks)
	if err != nil {
		return ID{}, &IDError{Input: s, Err: err}
	}
	return ID{Version: v, Target: k}, nil
}

func (id ID) String() string {
	return id.Version.String() + " " + id.Target.String()
}

// Compare orders by version, then by the canonical target kind order.
func (id ID) Compare(o ID) int {
	if c := id.Version.Compare(o.Version); c != 0 {
		return c
	}
	return id.Target.Compare(o.Target)
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	p, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = p
	return nil
}
