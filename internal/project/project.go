// Package project locates the project root and the proposal corpus inside it.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/agx/internal/apperr"
	"github.com/starford/agx/internal/creation"
	"github.com/starford/agx/internal/ident"
	"github.com/starford/agx/internal/storage"
)

// Root markers, nearest workspace first.
const (
	WorkspaceMarker = "go.work"
	ModuleMarker    = "go.mod"
)

// Layout is the resolved location of a corpus. It is derived per invocation
// and passed explicitly to the components that need it.
type Layout struct {
	Root      string // project root
	Marker    string // marker file that selected Root, empty for the cwd fallback
	CorpusDir string // absolute corpus directory
}

// Discover walks up from start. The nearest directory holding go.work wins,
// otherwise the nearest holding go.mod, otherwise start itself. corpus is
// joined to the root unless it is absolute.
func Discover(start, corpus string) (*Layout, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("project: resolve %s: %w", start, err)
	}

	var moduleRoot string
	layout := &Layout{Root: abs}
	for dir := abs; ; dir = filepath.Dir(dir) {
		if isFile(filepath.Join(dir, WorkspaceMarker)) {
			layout.Root, layout.Marker = dir, WorkspaceMarker
			break
		}
		if moduleRoot == "" && isFile(filepath.Join(dir, ModuleMarker)) {
			moduleRoot = dir
		}
		if parent := filepath.Dir(dir); parent == dir {
			if moduleRoot != "" {
				layout.Root, layout.Marker = moduleRoot, ModuleMarker
			}
			break
		}
	}

	if filepath.IsAbs(corpus) {
		layout.CorpusDir = filepath.Clean(corpus)
	} else {
		layout.CorpusDir = filepath.Join(layout.Root, corpus)
	}
	return layout, nil
}

// TemplatePath returns the corpus template location.
func (l *Layout) TemplatePath() string {
	return filepath.Join(l.CorpusDir, ident.TemplateFile)
}

// LoadTemplate reads the corpus template, falling back to the built-in one
// when the corpus has none.
func (l *Layout) LoadTemplate() (string, error) {
	data, err := os.ReadFile(l.TemplatePath())
	if errors.Is(err, os.ErrNotExist) {
		return creation.DefaultTemplate, nil
	}
	if err != nil {
		return "", fmt.Errorf("project: read template: %w", err)
	}
	return string(data), nil
}

// Store opens the corpus directory.
func (l *Layout) Store() (*storage.FS, error) {
	return storage.NewFS(l.CorpusDir)
}

// Init creates the corpus directory and seeds the template when missing. It
// returns the paths it ensured, existing or new.
func (l *Layout) Init() ([]string, error) {
	if err := os.MkdirAll(l.CorpusDir, 0o755); err != nil {
		return nil, fmt.Errorf("project: create %s: %w", l.CorpusDir, err)
	}
	store, err := l.Store()
	if err != nil {
		return nil, err
	}
	err = store.Create(ident.TemplateFile, []byte(creation.DefaultTemplate))
	if err != nil && !errors.Is(err, apperr.ErrAlreadyExists) {
		return nil, fmt.Errorf("project: seed template: %w", err)
	}
	return []string{l.CorpusDir, l.TemplatePath()}, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
