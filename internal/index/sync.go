package index

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/agx/internal/checksum"
	"github.com/starford/agx/internal/frontmatter"
	"github.com/starford/agx/internal/ident"
	"github.com/starford/agx/internal/models"
	"github.com/starford/agx/internal/storage"
	"github.com/starford/agx/internal/titleindex"
)

// Sync scans the corpus and brings the catalog up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the catalog
//
// Unreadable documents are logged and skipped; the catalog is a view and
// never blocks on a broken file.
func Sync(db Catalog, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteProposal(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses a document and upserts it with its reference edges.
func IndexFile(db Catalog, path string, data []byte) error {
	meta, body, err := frontmatter.Read(string(data))
	if err != nil {
		return err
	}
	id, title, err := titleindex.Identity(meta)
	if err != nil {
		return err
	}
	var p models.Proposal
	if err := meta.Decode(&p); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return db.UpsertProposal(Row{
		Path:        path,
		ID:          id,
		Title:       title,
		Authors:     p.Authors,
		Checksum:    checksum.Sum(data),
		LastUpdated: p.LastUpdated,
		UpdatedAt:   time.Now(),
	}, body, Links(id, p))
}

// Links returns the outgoing reference edges of p.
func Links(source ident.ID, p models.Proposal) []models.Link {
	var out []models.Link
	for _, l := range []struct {
		typ string
		ids []ident.ID
	}{
		{models.KeyPrerequisite, p.Prerequisite},
		{models.KeySupersedes, p.Supersedes},
		{models.KeySupersededBy, p.SupersededBy},
	} {
		for _, target := range l.ids {
			out = append(out, models.Link{Source: source, Target: target, Type: l.typ})
		}
	}
	return out
}
