package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/agx/internal/ident"
	"github.com/starford/agx/internal/storage"
)

// Event kinds reported to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven catalog change.
type EventCallback func(kind string, path string)

// reconcileDelay debounces the catalog pass that follows a rename.
const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the corpus directory and processes
// file change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful catalog mutation.
//
// Only file names carrying a proposal id are considered. Rename events
// trigger a reconciliation pass that removes catalog rows whose files no
// longer exist and indexes files that are new or changed.
func Watch(ctx context.Context, db Catalog, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	notify := func(kind, path string) {
		if cb != nil {
			cb(kind, path)
		}
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			name := filepath.Base(ev.Name)
			if filepath.Dir(ev.Name) != root {
				continue
			}
			if _, ok := ident.FileID(name); !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(name)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", name), slog.String("error", readErr.Error()))
					continue
				}
				if idxErr := IndexFile(db, name, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", name), slog.String("error", idxErr.Error()))
					continue
				}
				kind := EventUpdated
				if ev.Op&fsnotify.Create != 0 {
					kind = EventCreated
				}
				logger.Debug("watcher: indexed", slog.String("path", name), slog.String("op", kind))
				notify(kind, name)

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteProposal(name); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", name), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", name))
				notify(EventDeleted, name)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports the old name only; the new name, when it
				// stays in the corpus, arrives as a separate Create.
				if delErr := db.DeleteProposal(name); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", name), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("path", name))
					notify(EventDeleted, name)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile removes catalog rows without a file on disk and indexes files
// whose checksum differs from the catalog.
func reconcile(db Catalog, store storage.Provider, logger *slog.Logger, notify EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if delErr := db.DeleteProposal(p); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("path", p))
				notify(EventDeleted, p)
			}
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		data, readErr := store.Read(p)
		if readErr != nil {
			continue
		}
		if idxErr := IndexFile(db, p, data); idxErr == nil {
			logger.Debug("reconcile: indexed", slog.String("path", p))
			notify(EventCreated, p)
		}
	}
}
