package manifest

import (
	"fmt"
	"slices"
	"strings"

	"github.com/starford/quarry/internal/apperr"
)

// ErrEmptyOverrideKey is returned when parsing an empty override key.
var ErrEmptyOverrideKey = fmt.Errorf("empty override key: %w", apperr.ErrInvalidInput)

// OverrideKey is a list of alias chains. "a>b,c" selects the dependency
// aliased b under a, and the dependency aliased c.
type OverrideKey [][]string

// ParseOverrideKey splits s on "," into chains and each chain on ">".
// Segments are kept verbatim, empty ones included.
func ParseOverrideKey(s string) (OverrideKey, error) {
	if s == "" {
		return nil, ErrEmptyOverrideKey
	}
	chains := strings.Split(s, ",")
	key := make(OverrideKey, len(chains))
	for i, c := range chains {
		key[i] = strings.Split(c, ">")
	}
	return key, nil
}

func (k OverrideKey) String() string {
	chains := make([]string, len(k))
	for i, c := range k {
		chains[i] = strings.Join(c, ">")
	}
	return strings.Join(chains, ",")
}

// Compare is lexicographic over chains, each chain lexicographic over aliases.
func (k OverrideKey) Compare(o OverrideKey) int {
	return slices.CompareFunc(k, o, func(a, b []string) int {
		return slices.Compare(a, b)
	})
}

// Equal reports structural equality.
func (k OverrideKey) Equal(o OverrideKey) bool { return k.Compare(o) == 0 }

// MarshalText implements encoding.TextMarshaler.
func (k OverrideKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *OverrideKey) UnmarshalText(b []byte) error {
	p, err := ParseOverrideKey(string(b))
	if err != nil {
		return err
	}
	*k = p
	return nil
}

// Override replaces the dependency selected by Key.
type Override struct {
	Key       OverrideKey
	Specifier DependencySpecifier
}
