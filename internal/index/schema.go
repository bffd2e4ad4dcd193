// Package index keeps a SQLite catalog of the proposal corpus for listing,
// search and reference-graph queries. The files on disk stay authoritative;
// the catalog is rebuilt from them by Sync and kept current by Watch.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS proposals (
	path         TEXT PRIMARY KEY,
	id           INTEGER NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	authors      TEXT NOT NULL DEFAULT '[]',
	checksum     TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL DEFAULT '',
	last_updated TEXT NOT NULL DEFAULT '',
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_proposals_id ON proposals(id);

CREATE TABLE IF NOT EXISTS refs (
	source_path TEXT NOT NULL,
	source      INTEGER NOT NULL,
	target      INTEGER NOT NULL,
	type        TEXT NOT NULL,
	UNIQUE(source_path, target, type)
);

CREATE INDEX IF NOT EXISTS idx_refs_source ON refs(source);
CREATE INDEX IF NOT EXISTS idx_refs_target ON refs(target);
`

// DB wraps a sql.DB with catalog operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
