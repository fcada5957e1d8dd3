package search

// Index defines the interface for package search operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Index interface {
	UpsertPackage(p PackageRow) error
	DeletePackage(name string) error
	GetPackage(name string) (*PackageRow, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]Result, error)
	Close() error
}

// Verify *DB satisfies Index at compile time.
var _ Index = (*DB)(nil)
