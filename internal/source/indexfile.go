package source

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/starford/quarry/internal/manifest"
	"github.com/starford/quarry/internal/target"
	"github.com/starford/quarry/internal/version"
)

// ErrMalformedIndex is wrapped by MalformedIndexError.
var ErrMalformedIndex = errors.New("malformed index file")

// MalformedIndexError reports a stored index file that cannot be read.
// It is a store failure, not a client error.
type MalformedIndexError struct {
	Key string // empty when the whole document failed to decode
	Err error
}

func (e *MalformedIndexError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("malformed index file: %v", e.Err)
	}
	return fmt.Sprintf("malformed index file: entry %q: %v", e.Key, e.Err)
}

func (e *MalformedIndexError) Unwrap() error { return ErrMalformedIndex }

// Doc entry kinds.
const (
	DocPage     = "page"
	DocCategory = "category"
)

// DocEntry is a node of a package's documentation tree: a page with a
// content hash, or a category with child entries.
type DocEntry struct {
	Kind        string     `toml:"kind" json:"kind"`
	Name        string     `toml:"name" json:"name"`
	Label       string     `toml:"label,omitempty" json:"label,omitempty"`
	Position    int        `toml:"position,omitempty" json:"position,omitempty"`
	Description string     `toml:"description,omitempty" json:"description,omitempty"`
	Hash        string     `toml:"hash,omitempty" json:"hash,omitempty"`
	Items       []DocEntry `toml:"items,omitempty" json:"items,omitempty"`
	Collapsed   bool       `toml:"collapsed,omitempty" json:"collapsed,omitempty"`
}

// Page builds a page entry.
func Page(name, hash string) DocEntry {
	return DocEntry{Kind: DocPage, Name: name, Label: name, Hash: hash}
}

// Category builds a category entry.
func Category(name string, items ...DocEntry) DocEntry {
	return DocEntry{Kind: DocCategory, Name: name, Label: name, Items: items}
}

func (e DocEntry) validate() error {
	switch e.Kind {
	case DocPage:
		if e.Hash == "" {
			return fmt.Errorf("doc page %q has no hash", e.Name)
		}
		if len(e.Items) > 0 {
			return fmt.Errorf("doc page %q has items", e.Name)
		}
	case DocCategory:
		for _, it := range e.Items {
			if err := it.validate(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("doc entry %q has unknown kind %q", e.Name, e.Kind)
	}
	return nil
}

// IndexFileEntry is the metadata of one published version+target.
type IndexFileEntry struct {
	Target       target.Target
	PublishedAt  time.Time
	Description  string
	License      string
	Authors      []string
	Repository   string
	Docs         []DocEntry
	Dependencies map[string]manifest.Dependency
}

// IndexFile maps every published version+target of one package to its
// metadata. A parsed IndexFile is never mutated.
type IndexFile map[version.ID]IndexFileEntry

type entryWire struct {
	Target       target.Target                      `toml:"target"`
	PublishedAt  time.Time                          `toml:"published_at"`
	Description  string                             `toml:"description,omitempty"`
	License      string                             `toml:"license,omitempty"`
	Authors      []string                           `toml:"authors,omitempty"`
	Repository   string                             `toml:"repository,omitempty"`
	Docs         []DocEntry                         `toml:"docs,omitempty"`
	Dependencies map[string]manifest.DependencyWire `toml:"dependencies,omitempty"`
}

// ParseIndexFile decodes a TOML index file. Every key must be a valid
// "{version} {target}" id agreeing with its entry's target environment.
func ParseIndexFile(data []byte) (IndexFile, error) {
	var raw map[string]entryWire
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
		return nil, &MalformedIndexError{Err: err}
	}

	out := make(IndexFile, len(raw))
	for key, w := range raw {
		id, err := version.ParseID(key)
		if err != nil {
			return nil, &MalformedIndexError{Key: key, Err: err}
		}
		if err := w.Target.Validate(); err != nil {
			return nil, &MalformedIndexError{Key: key, Err: err}
		}
		if w.Target.Kind() != id.Target {
			return nil, &MalformedIndexError{Key: key, Err: fmt.Errorf("target %s does not match key", w.Target.Kind())}
		}
		for _, d := range w.Docs {
			if err := d.validate(); err != nil {
				return nil, &MalformedIndexError{Key: key, Err: err}
			}
		}
		var deps map[string]manifest.Dependency
		if len(w.Dependencies) > 0 {
			deps = make(map[string]manifest.Dependency, len(w.Dependencies))
			for alias, dw := range w.Dependencies {
				d, err := dw.Dependency()
				if err != nil {
					return nil, &MalformedIndexError{Key: key, Err: fmt.Errorf("dependency %q: %w", alias, err)}
				}
				deps[alias] = d
			}
		}
		out[id] = IndexFileEntry{
			Target:       w.Target,
			PublishedAt:  w.PublishedAt.UTC(),
			Description:  w.Description,
			License:      w.License,
			Authors:      w.Authors,
			Repository:   w.Repository,
			Docs:         w.Docs,
			Dependencies: deps,
		}
	}
	return out, nil
}

// Encode writes f as TOML, the inverse of ParseIndexFile.
func (f IndexFile) Encode() ([]byte, error) {
	raw := make(map[string]entryWire, len(f))
	for id, e := range f {
		var deps map[string]manifest.DependencyWire
		if len(e.Dependencies) > 0 {
			deps = make(map[string]manifest.DependencyWire, len(e.Dependencies))
			for alias, d := range e.Dependencies {
				deps[alias] = d.Wire()
			}
		}
		raw[id.String()] = entryWire{
			Target:       e.Target,
			PublishedAt:  e.PublishedAt,
			Description:  e.Description,
			License:      e.License,
			Authors:      e.Authors,
			Repository:   e.Repository,
			Docs:         e.Docs,
			Dependencies: deps,
		}
	}
	data, err := toml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("source: encode index file: %w", err)
	}
	return data, nil
}

// IDs returns the file's keys in ascending order.
func (f IndexFile) IDs() []version.ID {
	ids := make([]version.ID, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, version.ID.Compare)
	return ids
}
