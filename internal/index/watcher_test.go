package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/agx/internal/storage"
)

func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store, testDB(t)
}

func doc(id, title string) []byte {
	return []byte("---\nid: \"" + id + "\"\ntitle: \"" + title + "\"\n---\n")
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	dir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "0001-new.md"), doc("0001", "New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("0001-new.md")
		return cs != ""
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:0001-new.md" {
				return true
			}
		}
		return false
	}, "expected created:0001-new.md callback")

	if cs, _ := db.GetChecksum("notes.md"); cs != "" {
		t.Error("file without id prefix was indexed")
	}
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	dir, store, db := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(dir, "0001-del.md"), doc("0001", "Delete Me"), 0o644)
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	if cs, _ := db.GetChecksum("0001-del.md"); cs == "" {
		t.Fatal("precondition: file should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(dir, "0001-del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("0001-del.md")
		return cs == ""
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	dir, store, db := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(dir, "0001-old.md"), doc("0001", "Rename"), 0o644)
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(dir, "0001-old.md"), filepath.Join(dir, "0001-renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("0001-old.md")
		newCS, _ := db.GetChecksum("0001-renamed.md")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}
