package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// DirBackend reads index files from a plain directory checkout.
type DirBackend struct {
	Root string
}

// Open checks that the root is a directory.
func (b DirBackend) Open() (Repository, error) {
	abs, err := filepath.Abs(b.Root)
	if err != nil {
		return nil, fmt.Errorf("source: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("source: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source: root is not a directory: %s", abs)
	}
	return dirTree{root: abs}, nil
}

type dirTree struct {
	root string
}

func (t dirTree) RootTree() (Tree, error) { return t, nil }

func (t dirTree) ReadFile(segments ...string) (string, bool, error) {
	if err := checkSegments(segments); err != nil {
		return "", false, err
	}
	p := filepath.Join(append([]string{t.root}, segments...)...)
	info, err := os.Stat(p)
	if absent(err) || (err == nil && !info.Mode().IsRegular()) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("source: stat %s: %w", strings.Join(segments, "/"), err)
	}
	data, err := os.ReadFile(p)
	if absent(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("source: read %s: %w", strings.Join(segments, "/"), err)
	}
	return string(data), true, nil
}

// absent reports a lookup that failed because some segment does not name
// a file, including a file standing where a directory is expected.
func absent(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func (t dirTree) Walk(fn WalkFunc) error {
	return filepath.WalkDir(t.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p != t.root && hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(t.root, p)
		if err != nil {
			return err
		}
		return fn(strings.Split(filepath.ToSlash(rel), "/"), string(data))
	})
}
