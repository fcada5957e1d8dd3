// Package storage defines the blob store holding package archives, readmes
// and documentation pages.
package storage

import (
	"io"

	"github.com/starford/quarry/internal/names"
	"github.com/starford/quarry/internal/version"
)

// Provider is the interface for blob operations. Readers return
// apperr.ErrNotFound for absent blobs; the caller closes the stream.
type Provider interface {
	// Doc returns the documentation page with the given content hash.
	Doc(hash string) (io.ReadCloser, error)
	// Readme returns the readme of one published version+target.
	Readme(name names.PackageName, id version.ID) (io.ReadCloser, error)
	// Package returns the archive of one published version+target.
	Package(name names.PackageName, id version.ID) (io.ReadCloser, error)

	// PutDoc stores a page and returns its content hash.
	PutDoc(content []byte) (string, error)
	// PutReadme atomically stores a readme.
	PutReadme(name names.PackageName, id version.ID, content []byte) error
	// PutPackage atomically stores an archive.
	PutPackage(name names.PackageName, id version.ID, content []byte) error
}
