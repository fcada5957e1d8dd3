package manifest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/quarry/internal/apperr"
	"github.com/starford/quarry/internal/names"
	"github.com/starford/quarry/internal/target"
)

// DefaultIndex is the index alias used when a specifier names none.
const DefaultIndex = "default"

// SpecifierKind tells the variants of DependencySpecifier apart.
type SpecifierKind int

// Specifier variants.
const (
	NativeSpecifier SpecifierKind = iota
	WallySpecifier
)

func (k SpecifierKind) String() string {
	if k == WallySpecifier {
		return "wally"
	}
	return "pesde"
}

// DependencySpecifier requests a dependency. The variant is carried by the
// name: a Wally name makes a Wally specifier. Target is only meaningful for
// native specifiers.
type DependencySpecifier struct {
	Name    names.PackageNames
	Version string
	Index   string
	Target  target.Kind
}

// Kind reports the variant.
func (s DependencySpecifier) Kind() SpecifierKind {
	if s.Name.IsWally() {
		return WallySpecifier
	}
	return NativeSpecifier
}

// IndexAlias returns Index, or DefaultIndex when unset.
func (s DependencySpecifier) IndexAlias() string {
	if s.Index == "" {
		return DefaultIndex
	}
	return s.Index
}

// Validate checks the specifier's own fields.
func (s DependencySpecifier) Validate() error {
	if s.Version == "" {
		return fmt.Errorf("specifier %s: version requirement is empty: %w", s.Name, apperr.ErrInvalidInput)
	}
	if s.Kind() == WallySpecifier && s.Target != "" {
		return fmt.Errorf("specifier %s: wally dependencies cannot select a target: %w", s.Name, apperr.ErrInvalidInput)
	}
	if s.Target != "" && !s.Target.Valid() {
		return &target.UnknownKindError{Value: string(s.Target)}
	}
	return nil
}

func (s DependencySpecifier) String() string {
	out := s.Name.String() + "@" + s.Version
	if s.Target != "" {
		out += " " + s.Target.String()
	}
	return out
}

// specifierWire is the persisted shape, shared by TOML and JSON.
type specifierWire struct {
	Name    string `toml:"name,omitempty" json:"name,omitempty"`
	Wally   string `toml:"wally,omitempty" json:"wally,omitempty"`
	Version string `toml:"version" json:"version"`
	Index   string `toml:"index,omitempty" json:"index,omitempty"`
	Target  string `toml:"target,omitempty" json:"target,omitempty"`
}

func (s DependencySpecifier) wire() specifierWire {
	w := specifierWire{Version: s.Version, Index: s.Index, Target: string(s.Target)}
	scope, name := s.Name.Parts()
	if s.Kind() == WallySpecifier {
		w.Wally = scope + "/" + name
	} else {
		w.Name = scope + "/" + name
	}
	return w
}

func (w specifierWire) specifier() (DependencySpecifier, error) {
	var (
		n   names.PackageNames
		err error
	)
	switch {
	case w.Name != "" && w.Wally != "":
		return DependencySpecifier{}, fmt.Errorf("specifier sets both name and wally: %w", apperr.ErrInvalidInput)
	case w.Name != "":
		var pn names.PackageName
		if pn, err = names.ParsePackageName(w.Name); err == nil {
			n = names.Native(pn)
		}
	case w.Wally != "":
		var wn names.WallyPackageName
		if wn, err = names.ParseWallyPackageName(w.Wally); err == nil {
			n = names.Wally(wn)
		}
	default:
		return DependencySpecifier{}, fmt.Errorf("specifier sets neither name nor wally: %w", apperr.ErrInvalidInput)
	}
	if err != nil {
		return DependencySpecifier{}, err
	}
	s := DependencySpecifier{Name: n, Version: w.Version, Index: w.Index, Target: target.Kind(w.Target)}
	if err := s.Validate(); err != nil {
		return DependencySpecifier{}, err
	}
	return s, nil
}

// MarshalJSON implements json.Marshaler.
func (s DependencySpecifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.wire())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *DependencySpecifier) UnmarshalJSON(b []byte) error {
	var w specifierWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	v, err := w.specifier()
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// DependencyType says how a dependency was declared.
type DependencyType string

// Dependency types.
const (
	Standard DependencyType = "standard"
	Dev      DependencyType = "dev"
	Peer     DependencyType = "peer"
)

// ParseDependencyType parses one of the dependency type names.
func ParseDependencyType(s string) (DependencyType, error) {
	switch t := DependencyType(s); t {
	case Standard, Dev, Peer:
		return t, nil
	}
	return "", fmt.Errorf("unknown dependency type %q: %w", s, apperr.ErrInvalidInput)
}

// Dependency is a specifier tagged with how it was declared.
type Dependency struct {
	Specifier DependencySpecifier `json:"specifier"`
	Type      DependencyType      `json:"type"`
}

// DependencyWire is the persisted shape of a Dependency. Index files embed
// it so their decoding stays on plain string fields.
type DependencyWire struct {
	Specifier specifierWire `toml:"specifier"`
	Type      string        `toml:"type"`
}

// Wire converts d to its persisted shape.
func (d Dependency) Wire() DependencyWire {
	return DependencyWire{Specifier: d.Specifier.wire(), Type: string(d.Type)}
}

// Dependency converts w back, validating every field.
func (w DependencyWire) Dependency() (Dependency, error) {
	s, err := w.Specifier.specifier()
	if err != nil {
		return Dependency{}, err
	}
	t, err := ParseDependencyType(w.Type)
	if err != nil {
		return Dependency{}, err
	}
	return Dependency{Specifier: s, Type: t}, nil
}

// ErrAliasConflict is wrapped by AliasConflictError.
var ErrAliasConflict = errors.New("alias conflict")

// AliasConflictError reports an alias used by more than one dependency.
type AliasConflictError struct {
	Alias string
}

func (e *AliasConflictError) Error() string {
	return fmt.Sprintf("another specifier is already using the alias %s", e.Alias)
}

func (e *AliasConflictError) Unwrap() error { return ErrAliasConflict }
