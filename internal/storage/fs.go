package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/quarry/internal/apperr"
	"github.com/starford/quarry/internal/checksum"
	"github.com/starford/quarry/internal/names"
	"github.com/starford/quarry/internal/version"
)

// File names inside a version+target directory.
const (
	PackageFile = "pkg.tar.gz"
	ReadmeFile  = "readme"
	docsDir     = "docs"
)

// FS implements Provider backed by the local file system:
//
//	{root}/{scope}/{name}/{version}/{target}/pkg.tar.gz
//	{root}/{scope}/{name}/{version}/{target}/readme
//	{root}/docs/{hash}
type FS struct {
	root string // absolute path to the blob directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// safePath resolves a relative path against the root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return abs, nil
}

func versionPath(name names.PackageName, id version.ID, file string) string {
	scope, pkg := name.Parts()
	return filepath.Join(scope, pkg, id.Version.String(), id.Target.String(), file)
}

func docPath(hash string) (string, error) {
	if !checksum.Valid(hash) {
		return "", fmt.Errorf("storage: invalid doc hash %q: %w", hash, apperr.ErrInvalidInput)
	}
	return filepath.Join(docsDir, hash), nil
}

func (f *FS) open(rel string) (io.ReadCloser, error) {
	abs, err := f.safePath(rel)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("storage: %s: %w", filepath.ToSlash(rel), apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", filepath.ToSlash(rel), err)
	}
	return file, nil
}

// Doc opens a stored documentation page.
func (f *FS) Doc(hash string) (io.ReadCloser, error) {
	rel, err := docPath(hash)
	if err != nil {
		return nil, err
	}
	return f.open(rel)
}

// Readme opens a stored readme.
func (f *FS) Readme(name names.PackageName, id version.ID) (io.ReadCloser, error) {
	return f.open(versionPath(name, id, ReadmeFile))
}

// Package opens a stored archive.
func (f *FS) Package(name names.PackageName, id version.ID) (io.ReadCloser, error) {
	return f.open(versionPath(name, id, PackageFile))
}

// PutDoc stores content under its SHA-256 hash.
func (f *FS) PutDoc(content []byte) (string, error) {
	hash := checksum.Sum(content)
	rel, err := docPath(hash)
	if err != nil {
		return "", err
	}
	if err := f.write(rel, content); err != nil {
		return "", err
	}
	return hash, nil
}

// PutReadme stores a readme.
func (f *FS) PutReadme(name names.PackageName, id version.ID, content []byte) error {
	return f.write(versionPath(name, id, ReadmeFile), content)
}

// PutPackage stores an archive.
func (f *FS) PutPackage(name names.PackageName, id version.ID, content []byte) error {
	return f.write(versionPath(name, id, PackageFile), content)
}

// write atomically writes content: tmp file → fsync → rename.
func (f *FS) write(rel string, content []byte) error {
	abs, err := f.safePath(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".quarry-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
