package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/starford/agx/internal/apperr"
	"github.com/starford/agx/internal/checksum"
	"github.com/starford/agx/internal/ident"
	"github.com/starford/agx/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the corpus directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w: %w", apperr.ErrCorpusUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: %w: root is not a directory: %s", apperr.ErrCorpusUnavailable, abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute corpus directory.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the corpus root and rejects
// any result that escapes it.
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: %w: absolute paths not allowed: %s", apperr.ErrInvalidInput, rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: %w: path escapes corpus root: %s", apperr.ErrInvalidInput, rel)
	}
	return abs, nil
}

// List scans the corpus directory (not recursively) and returns metadata for
// every file whose name carries a proposal id.
func (f *FS) List() ([]models.FileMeta, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w: %w", f.root, apperr.ErrCorpusUnavailable, err)
	}
	var out []models.FileMeta
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := ident.FileID(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("storage: stat %s: %w", e.Name(), err)
		}
		data, err := os.ReadFile(filepath.Join(f.root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("storage: read %s: %w", e.Name(), err)
		}
		out = append(out, models.FileMeta{
			Path:      e.Name(),
			ID:        id,
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// Read returns the raw bytes of a corpus file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically replaces the file through a temp file and rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	if err := atomic.WriteFile(abs, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

// Create writes a new file, refusing to replace an existing one.
func (f *FS) Create(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	fh, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("storage: create %s: %w", path, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("storage: create %s: %w", path, err)
	}

	success := false
	defer func() {
		if !success {
			_ = fh.Close()
			_ = os.Remove(abs)
		}
	}()

	if _, err := fh.Write(content); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err := fh.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", path, err)
	}
	success = true
	return nil
}
