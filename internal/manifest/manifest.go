// Package manifest implements the authored description of a package: its
// identity, its target and its dependency sets.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pelletier/go-toml/v2"

	"github.com/starford/quarry/internal/apperr"
	"github.com/starford/quarry/internal/names"
	"github.com/starford/quarry/internal/target"
	"github.com/starford/quarry/internal/version"
)

// FileName is the conventional manifest file name.
const FileName = "pesde.toml"

// Manifest is a decoded package manifest.
type Manifest struct {
	Name        names.PackageName
	Version     version.Version
	Description string
	License     string
	Authors     []string
	Repository  string
	Target      target.Target
	Private     bool

	// Scripts, Overrides and Patches are read but never encoded back.
	Scripts   map[string]string
	Overrides []Override // sorted by key
	Patches   map[names.PackageNames]map[version.ID]string

	Indices      map[string]string
	WallyIndices map[string]string
	Includes     []string // sorted, unique

	Dependencies     map[string]DependencySpecifier
	PeerDependencies map[string]DependencySpecifier
	DevDependencies  map[string]DependencySpecifier
}

type manifestFile struct {
	Name         string                       `toml:"name"`
	Version      string                       `toml:"version"`
	Description  string                       `toml:"description,omitempty"`
	License      string                       `toml:"license,omitempty"`
	Authors      []string                     `toml:"authors,omitempty"`
	Repository   string                       `toml:"repository,omitempty"`
	Target       target.Target                `toml:"target"`
	Private      bool                         `toml:"private,omitempty"`
	Scripts      map[string]string            `toml:"scripts,omitempty"`
	Indices      map[string]string            `toml:"indices,omitempty"`
	WallyIndices map[string]string            `toml:"wally_indices,omitempty"`
	Overrides    map[string]specifierWire     `toml:"overrides,omitempty"`
	Includes     []string                     `toml:"includes,omitempty"`
	Patches      map[string]map[string]string `toml:"patches,omitempty"`

	Dependencies     map[string]specifierWire `toml:"dependencies,omitempty"`
	PeerDependencies map[string]specifierWire `toml:"peer_dependencies,omitempty"`
	DevDependencies  map[string]specifierWire `toml:"dev_dependencies,omitempty"`
}

// Parse decodes a TOML manifest. Unknown keys are rejected.
func Parse(data []byte) (*Manifest, error) {
	var f manifestFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w: %w", apperr.ErrInvalidInput, err)
	}

	name, err := names.ParsePackageName(f.Name)
	if err != nil {
		return nil, fmt.Errorf("manifest: name: %w", err)
	}
	ver, err := version.Parse(f.Version)
	if err != nil {
		return nil, fmt.Errorf("manifest: version: %w", err)
	}
	if err := f.Target.Validate(); err != nil {
		return nil, fmt.Errorf("manifest: target: %w", err)
	}

	m := &Manifest{
		Name:         name,
		Version:      ver,
		Description:  f.Description,
		License:      f.License,
		Authors:      f.Authors,
		Repository:   f.Repository,
		Target:       f.Target,
		Private:      f.Private,
		Scripts:      f.Scripts,
		Indices:      f.Indices,
		WallyIndices: f.WallyIndices,
	}

	if len(f.Includes) > 0 {
		m.Includes = slices.Clone(f.Includes)
		sort.Strings(m.Includes)
		m.Includes = slices.Compact(m.Includes)
	}

	for raw, w := range f.Overrides {
		key, err := ParseOverrideKey(raw)
		if err != nil {
			return nil, fmt.Errorf("manifest: override %q: %w", raw, err)
		}
		spec, err := w.specifier()
		if err != nil {
			return nil, fmt.Errorf("manifest: override %q: %w", raw, err)
		}
		m.Overrides = append(m.Overrides, Override{Key: key, Specifier: spec})
	}
	slices.SortFunc(m.Overrides, func(a, b Override) int { return a.Key.Compare(b.Key) })

	if len(f.Patches) > 0 {
		m.Patches = make(map[names.PackageNames]map[version.ID]string, len(f.Patches))
		for rawName, byID := range f.Patches {
			pn, err := names.ParsePackageNames(rawName)
			if err != nil {
				return nil, fmt.Errorf("manifest: patches: %w", err)
			}
			inner := make(map[version.ID]string, len(byID))
			for rawID, path := range byID {
				id, err := version.ParseID(rawID)
				if err != nil {
					return nil, fmt.Errorf("manifest: patches %s: %w", rawName, err)
				}
				inner[id] = path
			}
			m.Patches[pn] = inner
		}
	}

	sets := []struct {
		src map[string]specifierWire
		dst *map[string]DependencySpecifier
	}{
		{f.Dependencies, &m.Dependencies},
		{f.PeerDependencies, &m.PeerDependencies},
		{f.DevDependencies, &m.DevDependencies},
	}
	for _, s := range sets {
		if len(s.src) == 0 {
			continue
		}
		out := make(map[string]DependencySpecifier, len(s.src))
		for alias, w := range s.src {
			spec, err := w.specifier()
			if err != nil {
				return nil, fmt.Errorf("manifest: dependency %q: %w", alias, err)
			}
			out[alias] = spec
		}
		*s.dst = out
	}

	return m, nil
}

// Encode writes m as TOML. Scripts, overrides and patches are left out.
func (m *Manifest) Encode() ([]byte, error) {
	f := manifestFile{
		Name:         m.Name.String(),
		Version:      m.Version.String(),
		Description:  m.Description,
		License:      m.License,
		Authors:      m.Authors,
		Repository:   m.Repository,
		Target:       m.Target,
		Private:      m.Private,
		Indices:      m.Indices,
		WallyIndices: m.WallyIndices,
		Includes:     m.Includes,

		Dependencies:     wireSet(m.Dependencies),
		PeerDependencies: wireSet(m.PeerDependencies),
		DevDependencies:  wireSet(m.DevDependencies),
	}
	data, err := toml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("manifest: encode: %w", err)
	}
	return data, nil
}

func wireSet(in map[string]DependencySpecifier) map[string]specifierWire {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]specifierWire, len(in))
	for alias, s := range in {
		out[alias] = s.wire()
	}
	return out
}

// AllDependencies merges the standard, peer and dev sets, in that order.
// An alias present in more than one set is an AliasConflictError.
func (m *Manifest) AllDependencies() (map[string]Dependency, error) {
	all := make(map[string]Dependency, len(m.Dependencies)+len(m.PeerDependencies)+len(m.DevDependencies))
	sets := []struct {
		deps map[string]DependencySpecifier
		ty   DependencyType
	}{
		{m.Dependencies, Standard},
		{m.PeerDependencies, Peer},
		{m.DevDependencies, Dev},
	}
	for _, s := range sets {
		aliases := make([]string, 0, len(s.deps))
		for a := range s.deps {
			aliases = append(aliases, a)
		}
		sort.Strings(aliases)
		for _, alias := range aliases {
			if _, dup := all[alias]; dup {
				return nil, &AliasConflictError{Alias: alias}
			}
			all[alias] = Dependency{Specifier: s.deps[alias], Type: s.ty}
		}
	}
	return all, nil
}

// Validate checks identity, target shape and that every dependency names
// a declared index.
func (m *Manifest) Validate() error {
	err := validation.ValidateStruct(m,
		validation.Field(&m.Name, validation.By(func(any) error {
			if m.Name.IsZero() {
				return errors.New("is required")
			}
			return nil
		})),
		validation.Field(&m.Version, validation.By(func(any) error {
			if m.Version.IsZero() {
				return errors.New("is required")
			}
			return nil
		})),
		validation.Field(&m.Repository, validation.By(absoluteURL)),
		validation.Field(&m.Indices, validation.Each(validation.By(absoluteURL))),
		validation.Field(&m.WallyIndices, validation.Each(validation.By(absoluteURL))),
		validation.Field(&m.Authors, validation.Each(validation.Required)),
	)
	if err != nil {
		return fmt.Errorf("manifest: %w: %w", apperr.ErrInvalidInput, err)
	}
	if err := m.Target.Validate(); err != nil {
		return fmt.Errorf("manifest: target: %w", err)
	}

	all, err := m.AllDependencies()
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	aliases := make([]string, 0, len(all))
	for a := range all {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		spec := all[alias].Specifier
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("manifest: dependency %q: %w", alias, err)
		}
		indices := m.Indices
		if spec.Kind() == WallySpecifier {
			indices = m.WallyIndices
		}
		if _, ok := indices[spec.IndexAlias()]; !ok {
			return fmt.Errorf("manifest: dependency %q: index %q is not declared: %w",
				alias, spec.IndexAlias(), apperr.ErrInvalidInput)
		}
	}
	return nil
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	return nil
}
