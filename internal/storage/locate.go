package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/agx/internal/apperr"
	"github.com/starford/agx/internal/ident"
)

// Locate maps a user selector to a corpus-relative path. It tries, in order:
// an all-digit id, an existing file path inside the corpus, a file name in
// the corpus with or without the ".md" suffix, and finally a slug match
// against file names.
func (f *FS) Locate(selector string) (string, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return "", fmt.Errorf("storage: %w: empty selector", apperr.ErrInvalidInput)
	}

	files, err := f.List()
	if err != nil {
		return "", err
	}

	if ident.IsNumeric(selector) {
		id, err := ident.ParseID(selector)
		if err != nil {
			return "", fmt.Errorf("storage: %w: %v", apperr.ErrInvalidInput, err)
		}
		var matches []string
		for _, fm := range files {
			if fm.ID == id {
				matches = append(matches, fm.Path)
			}
		}
		return single(selector, matches)
	}

	if rel, ok := f.existing(selector); ok {
		return rel, nil
	}
	for _, name := range []string{selector, selector + ".md"} {
		if abs, err := f.safePath(name); err == nil && isFile(abs) && filepath.Base(abs) != ident.TemplateFile {
			return filepath.Rel(f.root, abs)
		}
	}

	slug := ident.Slugify(selector)
	suffix := "-" + slug + ".md"
	var matches []string
	for _, fm := range files {
		if strings.HasSuffix(fm.Path, suffix) || strings.Contains(fm.Path, slug) {
			matches = append(matches, fm.Path)
		}
	}
	return single(selector, matches)
}

// existing accepts a path given relative to the working directory (or
// absolute) when it points at a file inside the corpus.
func (f *FS) existing(selector string) (string, bool) {
	abs, err := filepath.Abs(selector)
	if err != nil || !isFile(abs) {
		return "", false
	}
	rel, err := filepath.Rel(f.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", false
	}
	return rel, true
}

func single(selector string, matches []string) (string, error) {
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("storage: %w: unable to locate proposal for selector `%s`", apperr.ErrNotFound, selector)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("storage: %w: selector `%s` matched multiple proposal files; use an exact path or id: %s",
			apperr.ErrAmbiguousReference, selector, strings.Join(matches, ", "))
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
