// Package testutil provides shared test helpers for index fixtures, blob
// stores and search databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/starford/quarry/internal/search"
	"github.com/starford/quarry/internal/source"
	"github.com/starford/quarry/internal/storage"
	"github.com/starford/quarry/internal/target"
	"github.com/starford/quarry/internal/version"
)

// Published is the publish time used by fixtures.
var Published = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *search.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "quarry-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := search.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestBlobs creates a temporary blob store directory.
func TestBlobs(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// ID parses a "{version} {target}" key or fails the test.
func ID(t *testing.T, s string) version.ID {
	t.Helper()
	id, err := version.ParseID(s)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

// Entry builds a publishable entry for kind with a library export.
func Entry(kind target.Kind) source.IndexFileEntry {
	tg := target.Target{Environment: kind, Lib: "src/init.luau"}
	if kind == target.Roblox {
		tg.BuildFiles = []string{"src"}
	}
	return source.IndexFileEntry{Target: tg, PublishedAt: Published}
}

// WriteIndex encodes files under root. Keys are "scope/name".
func WriteIndex(t *testing.T, root string, files map[string]source.IndexFile) {
	t.Helper()
	for key, f := range files {
		data, err := f.Encode()
		if err != nil {
			t.Fatal(err)
		}
		p := filepath.Join(root, filepath.FromSlash(key))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// DirIndex writes files to a fresh directory and returns its path.
func DirIndex(t *testing.T, files map[string]source.IndexFile) string {
	t.Helper()
	root := t.TempDir()
	WriteIndex(t, root, files)
	return root
}

// GitIndex writes files to a fresh repository, commits them and returns
// the repository path.
func GitIndex(t *testing.T, files map[string]source.IndexFile) string {
	t.Helper()
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	if err != nil {
		t.Fatal(err)
	}
	WriteIndex(t, root, files)
	Commit(t, repo, "publish")
	return root
}

// Commit stages every file of the working tree and commits it.
func Commit(t *testing.T, repo *git.Repository, msg string) {
	t.Helper()
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		t.Fatal(err)
	}
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "quarry", Email: "quarry@example.com", When: Published},
	})
	if err != nil {
		t.Fatal(err)
	}
}
