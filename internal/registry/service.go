// Package registry answers package queries: it loads index files, runs the
// resolution engine and fetches stored blobs.
package registry

import (
	"context"
	"fmt"
	"io"

	"github.com/starford/quarry/internal/apperr"
	"github.com/starford/quarry/internal/names"
	"github.com/starford/quarry/internal/resolve"
	"github.com/starford/quarry/internal/search"
	"github.com/starford/quarry/internal/source"
	"github.com/starford/quarry/internal/storage"
	"github.com/starford/quarry/internal/target"
)

// Loader reads the index file of one package. *source.Reader implements it.
type Loader interface {
	Load(ctx context.Context, scope, name string) (source.IndexFile, error)
}

// Query is one package version lookup as received from a client.
type Query struct {
	Name    string // "scope/name"
	Version string // "latest" or a version
	Target  string // "any" or a kind name
	Doc     string // optional documentation page name
	Accept  string // content negotiation hint
}

// Result is either metadata or an open blob. When Body is non-nil the
// caller must close it.
type Result struct {
	Metadata    *resolve.PackageResponse
	Body        io.ReadCloser
	ContentType string
}

// Service coordinates the index, the blob store and the search database.
type Service struct {
	index   Loader
	store   storage.Provider
	db      search.Index
	targets *target.KindSet
}

// NewService creates a new registry service. targets restricts the kinds
// clients may request; nil allows every kind.
func NewService(index Loader, store storage.Provider, db search.Index, targets *target.KindSet) *Service {
	return &Service{index: index, store: store, db: db, targets: targets}
}

func (s *Service) load(ctx context.Context, raw string) (names.PackageName, source.IndexFile, error) {
	name, err := names.ParsePackageName(raw)
	if err != nil {
		return names.PackageName{}, nil, err
	}
	file, err := s.index.Load(ctx, name.Scope(), name.Name())
	if err != nil {
		return names.PackageName{}, nil, err
	}
	return name, file, nil
}

// GetPackageVersion resolves q and returns the selected representation.
// A doc page takes precedence over content negotiation.
func (s *Service) GetPackageVersion(ctx context.Context, q Query) (*Result, error) {
	vreq, err := resolve.ParseVersionRequest(q.Version)
	if err != nil {
		return nil, err
	}
	treq, err := resolve.ParseTargetRequest(q.Target, s.targets)
	if err != nil {
		return nil, err
	}
	name, file, err := s.load(ctx, q.Name)
	if err != nil {
		return nil, err
	}
	res, err := resolve.Resolve(file, vreq, treq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	if q.Doc != "" {
		hash, ok := resolve.FindDoc(res.Entry.Docs, q.Doc)
		if !ok {
			return nil, fmt.Errorf("doc %q of %s %s: %w", q.Doc, name, res.ID, apperr.ErrNotFound)
		}
		body, err := s.store.Doc(hash)
		if err != nil {
			return nil, err
		}
		return &Result{Body: body, ContentType: resolve.MediaReadme}, nil
	}

	switch resolve.Negotiate(q.Accept) {
	case resolve.Readme:
		body, err := s.store.Readme(name, res.ID)
		if err != nil {
			return nil, err
		}
		return &Result{Body: body, ContentType: resolve.MediaReadme}, nil
	case resolve.Archive:
		body, err := s.store.Package(name, res.ID)
		if err != nil {
			return nil, err
		}
		return &Result{Body: body, ContentType: resolve.MediaArchive}, nil
	}
	meta := resolve.NewPackageResponse(name.String(), res)
	return &Result{Metadata: &meta, ContentType: "application/json"}, nil
}

// ListVersions returns every published version of a package, newest first.
// A package whose index file holds no versions is not found.
func (s *Service) ListVersions(ctx context.Context, raw string) (*resolve.VersionsResponse, error) {
	name, file, err := s.load(ctx, raw)
	if err != nil {
		return nil, err
	}
	if len(file) == 0 {
		return nil, fmt.Errorf("%s: no versions: %w", name, apperr.ErrNotFound)
	}
	resp := resolve.NewVersionsResponse(name.String(), file)
	return &resp, nil
}

// Search delegates full-text search to the search database.
func (s *Service) Search(_ context.Context, query string, limit int) ([]search.Result, error) {
	if query == "" {
		return nil, fmt.Errorf("search: empty query: %w", apperr.ErrInvalidInput)
	}
	return s.db.Search(query, limit)
}
