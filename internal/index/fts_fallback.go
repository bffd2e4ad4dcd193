//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/agx/internal/ident"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on proposals.body.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string, _ []string) error {
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT path, id, title, substr(body, 1, 200)
		FROM proposals
		WHERE title LIKE ? OR body LIKE ? OR authors LIKE ?
		ORDER BY id
		LIMIT ?
	`, like, like, like, limit)
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
