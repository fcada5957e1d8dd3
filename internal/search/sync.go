package search

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/starford/quarry/internal/apperr"
	"github.com/starford/quarry/internal/checksum"
	"github.com/starford/quarry/internal/names"
	"github.com/starford/quarry/internal/resolve"
	"github.com/starford/quarry/internal/source"
)

// Walker visits the files of the current index tree. *source.Reader
// implements it.
type Walker interface {
	Walk(ctx context.Context, fn source.WalkFunc) error
}

// Report lists the packages a Sync changed.
type Report struct {
	Updated []string
	Removed []string
}

// Empty reports whether nothing changed.
func (r Report) Empty() bool { return len(r.Updated) == 0 && len(r.Removed) == 0 }

type changed struct {
	name     string
	sum      string
	contents string
}

// Sync walks the index and brings the search table up to date:
//   - new/changed index files are parsed and upserted
//   - packages whose index file is gone are deleted
//
// Files that are not scope/name index files are ignored.
func Sync(ctx context.Context, db Index, w Walker, logger *slog.Logger) (Report, error) {
	var report Report
	checksums, err := db.AllChecksums()
	if err != nil {
		return report, err
	}

	seen := make(map[string]struct{})
	var todo []changed
	err = w.Walk(ctx, func(segments []string, contents string) error {
		if len(segments) != 2 {
			return nil
		}
		n, err := names.ParsePackageName(segments[0] + "/" + segments[1])
		if err != nil {
			return nil
		}
		name := n.String()
		seen[name] = struct{}{}
		sum := checksum.Sum([]byte(contents))
		if checksums[name] != sum {
			todo = append(todo, changed{name: name, sum: sum, contents: contents})
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	for _, c := range todo {
		if err := indexPackage(db, c); err != nil {
			logger.Warn("sync: index failed", slog.String("package", c.name), slog.String("error", err.Error()))
			continue
		}
		report.Updated = append(report.Updated, c.name)
		logger.Debug("sync: indexed", slog.String("package", c.name))
	}

	// Remove stale entries.
	for name := range checksums {
		if _, ok := seen[name]; ok {
			continue
		}
		if err := db.DeletePackage(name); err != nil {
			logger.Warn("sync: delete failed", slog.String("package", name), slog.String("error", err.Error()))
			continue
		}
		report.Removed = append(report.Removed, name)
		logger.Debug("sync: removed stale", slog.String("package", name))
	}
	slices.Sort(report.Removed)
	return report, nil
}

// indexPackage summarizes the latest version of one index file.
func indexPackage(db Index, c changed) error {
	file, err := source.ParseIndexFile([]byte(c.contents))
	if err != nil {
		return err
	}
	res, err := resolve.Resolve(file, resolve.Latest(), resolve.AnyTarget())
	if errors.Is(err, apperr.ErrNotFound) {
		// Nothing published; keep the checksum so the file is not re-read.
		return db.UpsertPackage(PackageRow{Name: c.name, Checksum: c.sum})
	}
	if err != nil {
		return err
	}
	targets := make([]string, len(res.Targets))
	for i, t := range res.Targets {
		targets[i] = t.Kind().String()
	}
	return db.UpsertPackage(PackageRow{
		Name:        c.name,
		Latest:      res.ID.Version.String(),
		Description: res.Entry.Description,
		Authors:     res.Entry.Authors,
		Targets:     targets,
		Checksum:    c.sum,
		PublishedAt: res.Entry.PublishedAt,
	})
}
