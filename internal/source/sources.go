// Package source implements package sources: the references a resolved
// dependency points to, the per-package index file and the stores that
// hold index files.
package source

// PackageSource is where a package reference is fetched from. The set of
// implementations is closed: NativeSource and WallySource.
type PackageSource interface {
	// IndexURL is the URL of the index repository.
	IndexURL() string
	// Kind names the source for logs and lockfiles.
	Kind() string

	sealed()
}

// NativeSource is a native index.
type NativeSource struct {
	URL string
}

func (s NativeSource) IndexURL() string { return s.URL }
func (NativeSource) Kind() string       { return "pesde" }
func (NativeSource) sealed()            {}

// WallySource is a Wally registry index.
type WallySource struct {
	URL string
}

func (s WallySource) IndexURL() string { return s.URL }
func (WallySource) Kind() string       { return "wally" }
func (WallySource) sealed()            {}
