package source

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitBackend reads index files from the HEAD commit of a git repository,
// bare or not. The working tree is ignored.
type GitBackend struct {
	Path string
}

// Open opens the repository.
func (b GitBackend) Open() (Repository, error) {
	repo, err := git.PlainOpen(b.Path)
	if err != nil {
		return nil, fmt.Errorf("source: open git repository %s: %w", b.Path, err)
	}
	return gitRepo{repo: repo}, nil
}

type gitRepo struct {
	repo *git.Repository
}

func (r gitRepo) RootTree() (Tree, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("source: resolve HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("source: read commit %s: %w", head.Hash(), err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("source: read tree of %s: %w", head.Hash(), err)
	}
	return gitTree{tree: tree}, nil
}

type gitTree struct {
	tree *object.Tree
}

func (t gitTree) ReadFile(segments ...string) (string, bool, error) {
	if err := checkSegments(segments); err != nil {
		return "", false, err
	}
	p := path.Join(segments...)
	if e, err := t.tree.FindEntry(p); err == nil && !e.Mode.IsFile() {
		return "", false, nil
	}
	f, err := t.tree.File(p)
	if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("source: find %s: %w", p, err)
	}
	contents, err := f.Contents()
	if err != nil {
		return "", false, fmt.Errorf("source: read blob %s: %w", p, err)
	}
	return contents, true, nil
}

func (t gitTree) Walk(fn WalkFunc) error {
	return t.tree.Files().ForEach(func(f *object.File) error {
		segments := strings.Split(f.Name, "/")
		for _, s := range segments {
			if hidden(s) {
				return nil
			}
		}
		contents, err := f.Contents()
		if err != nil {
			return fmt.Errorf("source: read blob %s: %w", f.Name, err)
		}
		return fn(segments, contents)
	})
}
