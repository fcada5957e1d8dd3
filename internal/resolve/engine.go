package resolve

import (
	"fmt"
	"slices"

	"github.com/starford/quarry/internal/apperr"
	"github.com/starford/quarry/internal/source"
	"github.com/starford/quarry/internal/target"
	"github.com/starford/quarry/internal/version"
)

// Resolution is the entry selected for a query.
type Resolution struct {
	ID    version.ID
	Entry source.IndexFileEntry
	// Targets holds the target of every entry published under ID.Version,
	// ordered by kind.
	Targets []target.Target
}

// Resolve selects the entry of file matching vreq and treq.
//
// "latest" is the greatest version by semantic version precedence. "any"
// is the first kind of the canonical kind order among the entries of that
// version, whatever order the file lists them in. A specific kind must
// match exactly; compatibility between kinds plays no part here. Every
// miss is apperr.ErrNotFound.
func Resolve(file source.IndexFile, vreq VersionRequest, treq TargetRequest) (*Resolution, error) {
	v, ok := vreq.Version()
	if !ok {
		versions := make([]version.Version, 0, len(file))
		for id := range file {
			versions = append(versions, id.Version)
		}
		if v, ok = version.Max(versions); !ok {
			return nil, fmt.Errorf("no published versions: %w", apperr.ErrNotFound)
		}
	}

	var ids []version.ID
	for id := range file {
		if id.Version == v {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("version %s: %w", v, apperr.ErrNotFound)
	}
	slices.SortFunc(ids, func(a, b version.ID) int { return a.Target.Compare(b.Target) })

	var (
		picked version.ID
		found  bool
	)
	if k, ok := treq.Kind(); ok {
		for _, id := range ids {
			if file[id].Target.Kind() == k {
				picked, found = id, true
				break
			}
		}
	} else {
		picked, found = ids[0], true
	}
	if !found {
		return nil, fmt.Errorf("version %s target %s: %w", v, treq, apperr.ErrNotFound)
	}

	targets := make([]target.Target, len(ids))
	for i, id := range ids {
		targets[i] = file[id].Target
	}
	return &Resolution{ID: picked, Entry: file[picked], Targets: targets}, nil
}
