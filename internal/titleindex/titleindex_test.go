package titleindex

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/agx/internal/apperr"
	"github.com/starford/agx/internal/ident"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "0001-add-parser.md", "---\nid: \"0001\"\ntitle: \"Add Parser\"\n---\n\n# RFC 0001: Add Parser\n")
	writeFile(t, dir, "0002-cache.md", "---\nid: 2\ntitle: \"Cache_Layer\"\n---\n")
	writeFile(t, dir, ident.TemplateFile, "---\ntitle: \"{{ .title }}\"\n---\n")
	writeFile(t, dir, "notes.md", "not a proposal")

	idx, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	want := []Entry{
		{ID: 1, Title: "Add Parser", Folded: "add parser", Slug: "add-parser", Path: "0001-add-parser.md"},
		{ID: 2, Title: "Cache_Layer", Folded: "cache_layer", Slug: "cache-layer", Path: "0002-cache.md"},
	}
	if diff := cmp.Diff(want, idx.Entries()); diff != "" {
		t.Errorf("entries (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]ident.ID{1, 2}, idx.IDs()); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
}

func TestLoadDir_MissingDir(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, apperr.ErrCorpusUnavailable) {
		t.Errorf("err = %v, want ErrCorpusUnavailable", err)
	}
}

func TestLoadDir_FailsFast(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    error
	}{
		{"no frontmatter", "# RFC 0003\n", apperr.ErrMalformedDocument},
		{"bad yaml", "---\ntitle: [\n---\n", apperr.ErrInvalidMetadata},
		{"missing title", "---\nid: \"0003\"\n---\n", apperr.ErrMissingRequiredField},
		{"missing id", "---\ntitle: \"x\"\n---\n", apperr.ErrMissingRequiredField},
		{"bad id", "---\nid: \"three\"\ntitle: \"x\"\n---\n", apperr.ErrInvalidMetadata},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "0001-ok.md", "---\nid: \"0001\"\ntitle: \"ok\"\n---\n")
			writeFile(t, dir, "0003-broken.md", tc.content)

			_, err := LoadDir(dir)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if !strings.Contains(err.Error(), "0003-broken.md") {
				t.Errorf("error lacks path context: %v", err)
			}
		})
	}
}
