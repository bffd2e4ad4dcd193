// Package testutil provides shared test helpers for setting up corpora and
// catalogs.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/agx/internal/index"
	"github.com/starford/agx/internal/storage"
)

// TestDB creates a temporary SQLite catalog that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "agx-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestCorpus creates a temporary corpus directory backed by storage.FS.
func TestCorpus(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteProposal writes a minimal proposal document named by path into dir.
func WriteProposal(t *testing.T, dir, path, id, title string) {
	t.Helper()
	doc := "---\nid: \"" + id + "\"\ntitle: \"" + title + "\"\nauthors: [\"Roger\"]\n---\n\n# RFC " + id + ": " + title + "\n"
	if err := os.WriteFile(filepath.Join(dir, path), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
}
