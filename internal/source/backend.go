package source

import (
	"fmt"
	"strings"
)

// Backend opens the repository holding index files.
type Backend interface {
	Open() (Repository, error)
}

// Repository is an opened index repository.
type Repository interface {
	// RootTree returns the tree of the current revision.
	RootTree() (Tree, error)
}

// WalkFunc receives each file of a tree with its path segments.
type WalkFunc func(segments []string, contents string) error

// Tree is a read-only view of one revision of the index.
type Tree interface {
	// ReadFile returns the file at the joined segments. found is false, with
	// a nil error, when the file does not exist.
	ReadFile(segments ...string) (contents string, found bool, err error)
	// Walk visits every file of the tree. Hidden entries are skipped.
	Walk(fn WalkFunc) error
}

// checkSegments rejects segments that could leave the tree.
func checkSegments(segments []string) error {
	if len(segments) == 0 {
		return fmt.Errorf("source: empty path")
	}
	for _, s := range segments {
		if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
			return fmt.Errorf("source: invalid path segment %q", s)
		}
	}
	return nil
}

func hidden(name string) bool { return strings.HasPrefix(name, ".") }
