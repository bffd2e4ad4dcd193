//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/agx/internal/ident"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS proposals_fts USING fts5(
			path UNINDEXED,
			title,
			body,
			authors,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, title, body string, authors []string) error {
	_, _ = tx.Exec(`DELETE FROM proposals_fts WHERE path = ?`, path)
	_, err := tx.Exec(`INSERT INTO proposals_fts (path, title, body, authors) VALUES (?, ?, ?, ?)`,
		path, title, body, strings.Join(authors, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM proposals_fts WHERE path = ?`, path)
}

// Search performs an FTS5 full-text search and returns matching results with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT f.path,
		       p.id,
		       f.title,
		       snippet(proposals_fts, 2, '<b>', '</b>', '...', 64)
		FROM proposals_fts f
		JOIN proposals p ON p.path = f.path
		WHERE proposals_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var (
			r  SearchResult
			id uint32
		)
		if err := rows.Scan(&r.Path, &id, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		r.ID = ident.ID(id)
		out = append(out, r)
	}
	return out, rows.Err()
}
