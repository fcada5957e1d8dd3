// Package target describes the deployment kinds a package can be built for
// and the shape of the files each kind exports.
package target

import (
	"errors"
	"fmt"
	"strings"

	"github.com/starford/quarry/internal/apperr"
)

// Kind is a deployment kind.
type Kind string

// Known kinds.
const (
	Roblox Kind = "roblox"
	Lune   Kind = "lune"
	Luau   Kind = "luau"
)

// ordering is the canonical order of kinds. Resolution of "any" target and
// the order of target summaries depend on it, so it must not be derived
// from anything else (string order, config order, map order).
var ordering = [...]Kind{Roblox, Lune, Luau}

// compatible lists the one-directional pairs beyond reflexivity:
// a project of the key kind may consume dependencies of the value kinds.
var compatible = map[Kind][]Kind{
	Lune: {Luau},
}

// ErrUnknownKind is wrapped by UnknownKindError.
var ErrUnknownKind = errors.New("unknown target kind")

// UnknownKindError is returned when a token names no known kind.
type UnknownKindError struct {
	Value string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown target kind %q", e.Value)
}

// Unwrap lets callers match both ErrUnknownKind and apperr.ErrInvalidInput.
func (e *UnknownKindError) Unwrap() []error {
	return []error{ErrUnknownKind, apperr.ErrInvalidInput}
}

// Kinds returns every known kind in canonical order.
func Kinds() []Kind {
	out := make([]Kind, len(ordering))
	copy(out, ordering[:])
	return out
}

// ParseKind parses the textual form of a kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range ordering {
		if string(k) == s {
			return k, nil
		}
	}
	return "", &UnknownKindError{Value: s}
}

func (k Kind) String() string { return string(k) }

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return k.rank() >= 0 }

func (k Kind) rank() int {
	for i, o := range ordering {
		if o == k {
			return i
		}
	}
	return -1
}

// Compare orders kinds by the canonical table. Unknown kinds sort last.
func (k Kind) Compare(other Kind) int {
	a, b := k.rank(), other.rank()
	if a < 0 {
		a = len(ordering)
	}
	if b < 0 {
		b = len(ordering)
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return strings.Compare(string(k), string(other))
}

// Less reports whether k sorts before other.
func (k Kind) Less(other Kind) bool { return k.Compare(other) < 0 }

// IsCompatibleWith reports whether a project of kind k may link a
// dependency published for kind dep.
func (k Kind) IsCompatibleWith(dep Kind) bool {
	if k == dep {
		return true
	}
	for _, c := range compatible[k] {
		if c == dep {
			return true
		}
	}
	return false
}

// PackagesFolder returns the install folder name for dependencies of kind
// dep inside a project of kind k.
func (k Kind) PackagesFolder(dep Kind) string {
	if k == dep {
		return "packages"
	}
	return string(dep) + "_packages"
}

// KindSet is the set of kinds a deployment enables. It is built once at
// startup and always iterates in canonical order.
type KindSet struct {
	enabled [len(ordering)]bool
}

// NewKindSet builds a set from kind names. An empty list enables every kind.
func NewKindSet(names ...string) (KindSet, error) {
	var s KindSet
	if len(names) == 0 {
		for i := range s.enabled {
			s.enabled[i] = true
		}
		return s, nil
	}
	for _, n := range names {
		k, err := ParseKind(n)
		if err != nil {
			return KindSet{}, err
		}
		s.enabled[k.rank()] = true
	}
	return s, nil
}

// Has reports whether k is enabled.
func (s KindSet) Has(k Kind) bool {
	r := k.rank()
	return r >= 0 && s.enabled[r]
}

// Kinds returns the enabled kinds in canonical order.
func (s KindSet) Kinds() []Kind {
	var out []Kind
	for i, k := range ordering {
		if s.enabled[i] {
			out = append(out, k)
		}
	}
	return out
}
