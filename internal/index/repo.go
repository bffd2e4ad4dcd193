package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/agx/internal/ident"
	"github.com/starford/agx/internal/models"
)

// Row represents a row in the proposals table.
type Row struct {
	Path        string
	ID          ident.ID
	Title       string
	Authors     []string
	Checksum    string
	LastUpdated string
	UpdatedAt   time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string   `json:"path"`
	ID      ident.ID `json:"id"`
	Title   string   `json:"title"`
	Snippet string   `json:"snippet"`
}

// GraphNode is one proposal in the reference graph.
type GraphNode struct {
	ID    ident.ID `json:"id"`
	Title string   `json:"title"`
	Path  string   `json:"path"`
}

// UpsertProposal inserts or replaces a proposal, its FTS entry, and its
// outgoing references within a transaction.
func (db *DB) UpsertProposal(p Row, body string, links []models.Link) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	authorsJSON, _ := json.Marshal(nonNil(p.Authors))

	_, err = tx.Exec(`
		INSERT INTO proposals (path, id, title, authors, checksum, body, last_updated, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			id           = excluded.id,
			title        = excluded.title,
			authors      = excluded.authors,
			checksum     = excluded.checksum,
			body         = excluded.body,
			last_updated = excluded.last_updated,
			updated_at   = excluded.updated_at
	`, p.Path, uint32(p.ID), p.Title, string(authorsJSON), p.Checksum, body, p.LastUpdated, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert proposal: %w", err)
	}

	if err := ftsUpsert(tx, p.Path, p.Title, body, p.Authors); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM refs WHERE source_path = ?`, p.Path); err != nil {
		return fmt.Errorf("index: clear refs: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO refs (source_path, source, target, type) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare ref insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			if _, err := stmt.Exec(p.Path, uint32(l.Source), uint32(l.Target), l.Type); err != nil {
				return fmt.Errorf("index: insert ref: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteProposal removes a proposal, its FTS entry, and outgoing references.
func (db *DB) DeleteProposal(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM refs WHERE source_path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM proposals WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a proposal, or an empty
// string if it is not catalogued.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM proposals WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every catalogued proposal.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM proposals`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// ListProposals returns one page of proposals and the total count. author
// filters on an exact author name; sort is "id" (default), "title" or
// "updated".
func (db *DB) ListProposals(limit, offset int, author, sort string) ([]Row, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	order := "id ASC, path ASC"
	switch sort {
	case "title":
		order = "title COLLATE NOCASE ASC, id ASC"
	case "updated":
		order = "last_updated DESC, id ASC"
	}

	where, args := "", []any{}
	if author != "" {
		where = `WHERE EXISTS (SELECT 1 FROM json_each(proposals.authors) WHERE json_each.value = ?)`
		args = append(args, author)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM proposals `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count proposals: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, id, title, authors, checksum, last_updated, updated_at
		FROM proposals `+where+`
		ORDER BY `+order+`
		LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list proposals: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r       Row
			id      uint32
			authors string
		)
		if err := rows.Scan(&r.Path, &id, &r.Title, &authors, &r.Checksum, &r.LastUpdated, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		r.ID = ident.ID(id)
		_ = json.Unmarshal([]byte(authors), &r.Authors)
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// Graph returns every catalogued proposal and every reference between them.
// References to ids that are not catalogued are kept; callers decide how to
// render dangling edges.
func (db *DB) Graph() ([]GraphNode, []models.Link, error) {
	rows, err := db.conn.Query(`SELECT id, title, path FROM proposals ORDER BY id, path`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	defer rows.Close()

	var nodes []GraphNode
	for rows.Next() {
		var (
			n  GraphNode
			id uint32
		)
		if err := rows.Scan(&id, &n.Title, &n.Path); err != nil {
			return nil, nil, err
		}
		n.ID = ident.ID(id)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	links, err := db.queryLinks(`SELECT source, target, type FROM refs ORDER BY source, type, target`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph links: %w", err)
	}
	return nodes, links, nil
}

// Referrers returns every reference pointing at target.
func (db *DB) Referrers(target ident.ID) ([]models.Link, error) {
	links, err := db.queryLinks(`SELECT source, target, type FROM refs WHERE target = ? ORDER BY source, type`, uint32(target))
	if err != nil {
		return nil, fmt.Errorf("index: referrers: %w", err)
	}
	return links, nil
}

func (db *DB) queryLinks(query string, args ...any) ([]models.Link, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Link
	for rows.Next() {
		var src, dst uint32
		var typ string
		if err := rows.Scan(&src, &dst, &typ); err != nil {
			return nil, err
		}
		out = append(out, models.Link{Source: ident.ID(src), Target: ident.ID(dst), Type: typ})
	}
	return out, rows.Err()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
