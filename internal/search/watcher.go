package search

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce is how long the watcher waits for a burst of changes to settle
// before re-syncing.
const debounce = 200 * time.Millisecond

// SyncCallback is called after every watcher-driven sync.
type SyncCallback func(report Report, err error)

// Watch starts an fsnotify watcher on the index checkout at root and
// re-runs Sync, debounced, whenever it changes, until ctx is cancelled.
//
// Hidden directories are not watched, except that the refs of a git
// repository at root are, so a new commit triggers a sync.
// New directories created at runtime are automatically added.
func Watch(ctx context.Context, db Index, w Walker, root string, logger *slog.Logger, cb SyncCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, root); err != nil {
		return err
	}
	for _, gitDir := range []string{filepath.Join(root, ".git"), filepath.Join(root, ".git", "refs", "heads")} {
		if info, statErr := os.Stat(gitDir); statErr == nil && info.IsDir() {
			if addErr := fw.Add(gitDir); addErr != nil {
				logger.Warn("watcher: add git dir failed", slog.String("path", gitDir), slog.String("error", addErr.Error()))
			}
		}
	}

	logger.Info("watcher: started", slog.String("root", root))

	var syncTimer *time.Timer
	var syncCh <-chan time.Time

	scheduleSync := func() {
		if syncTimer == nil {
			syncTimer = time.NewTimer(debounce)
			syncCh = syncTimer.C
		} else {
			syncTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if syncTimer != nil {
				syncTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-syncCh:
			report, err := Sync(ctx, db, w, logger)
			if err != nil {
				logger.Warn("watcher: sync failed", slog.String("error", err.Error()))
			} else {
				logger.Debug("watcher: synced",
					slog.Int("updated", len(report.Updated)),
					slog.Int("removed", len(report.Removed)))
			}
			if cb != nil {
				cb(report, err)
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Chmod == ev.Op {
				continue
			}

			// New directories are watched too.
			if ev.Op&fsnotify.Create != 0 && !hiddenPath(root, ev.Name) {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fw, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
				}
			}
			scheduleSync()

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func hiddenPath(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
