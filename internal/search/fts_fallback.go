//go:build !sqlite_fts5

package search

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on the packages table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ PackageRow) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT name, latest, description, targets, substr(description, 1, 200)
		FROM packages
		WHERE name LIKE ? OR description LIKE ? OR authors LIKE ?
		ORDER BY published_at DESC, name
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}
