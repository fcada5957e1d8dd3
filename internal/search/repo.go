package search

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/quarry/internal/apperr"
)

// PackageRow represents a row in the packages table.
type PackageRow struct {
	Name        string
	Latest      string
	Description string
	Authors     []string
	Targets     []string
	Checksum    string
	PublishedAt time.Time
}

// Result represents one search hit.
type Result struct {
	Name        string   `json:"name"`
	Latest      string   `json:"latest"`
	Description string   `json:"description,omitempty"`
	Targets     []string `json:"targets"`
	Snippet     string   `json:"snippet,omitempty"`
}

func scanResults(rows *sql.Rows) ([]Result, error) {
	out := []Result{}
	for rows.Next() {
		var (
			r       Result
			targets string
		)
		if err := rows.Scan(&r.Name, &r.Latest, &r.Description, &targets, &r.Snippet); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(targets), &r.Targets)
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertPackage inserts or replaces a package and its FTS entry within a
// transaction.
func (db *DB) UpsertPackage(p PackageRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	authors, _ := json.Marshal(nonNil(p.Authors))
	targets, _ := json.Marshal(nonNil(p.Targets))

	_, err = tx.Exec(`
		INSERT INTO packages (name, latest, description, authors, targets, checksum, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			latest       = excluded.latest,
			description  = excluded.description,
			authors      = excluded.authors,
			targets      = excluded.targets,
			checksum     = excluded.checksum,
			published_at = excluded.published_at
	`, p.Name, p.Latest, p.Description, string(authors), string(targets), p.Checksum, p.PublishedAt.UTC())
	if err != nil {
		return fmt.Errorf("search: upsert package: %w", err)
	}

	if err := ftsUpsert(tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

// DeletePackage removes a package and its FTS entry.
func (db *DB) DeletePackage(name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, name)
	if _, err := tx.Exec(`DELETE FROM packages WHERE name = ?`, name); err != nil {
		return fmt.Errorf("search: delete package: %w", err)
	}
	return tx.Commit()
}

// GetPackage returns one package row, or apperr.ErrNotFound.
func (db *DB) GetPackage(name string) (*PackageRow, error) {
	var (
		p                PackageRow
		authors, targets string
	)
	err := db.conn.QueryRow(`
		SELECT name, latest, description, authors, targets, checksum, published_at
		FROM packages WHERE name = ?
	`, name).Scan(&p.Name, &p.Latest, &p.Description, &authors, &targets, &p.Checksum, &p.PublishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("search: package %s: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("search: get package: %w", err)
	}
	_ = json.Unmarshal([]byte(authors), &p.Authors)
	_ = json.Unmarshal([]byte(targets), &p.Targets)
	return &p, nil
}

// AllChecksums returns the stored checksum of every package, keyed by name.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT name, checksum FROM packages`)
	if err != nil {
		return nil, fmt.Errorf("search: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var n, cs string
		if err := rows.Scan(&n, &cs); err != nil {
			return nil, err
		}
		out[n] = cs
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
