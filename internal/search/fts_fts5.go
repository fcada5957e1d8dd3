//go:build sqlite_fts5

package search

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS packages_fts USING fts5(
			name,
			description,
			authors,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, p PackageRow) error {
	_, _ = tx.Exec(`DELETE FROM packages_fts WHERE name = ?`, p.Name)
	_, err := tx.Exec(`INSERT INTO packages_fts (name, description, authors) VALUES (?, ?, ?)`,
		p.Name, p.Description, strings.Join(p.Authors, " "))
	if err != nil {
		return fmt.Errorf("search: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, name string) {
	_, _ = tx.Exec(`DELETE FROM packages_fts WHERE name = ?`, name)
}

// Search performs an FTS5 full-text search over names, descriptions and
// authors.
func (db *DB) Search(query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT p.name, p.latest, p.description, p.targets,
		       snippet(packages_fts, 1, '<b>', '</b>', '...', 32)
		FROM packages_fts
		JOIN packages p ON p.name = packages_fts.name
		WHERE packages_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}
