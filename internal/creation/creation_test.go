package creation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/agx/internal/apperr"
	"github.com/starford/agx/internal/frontmatter"
	"github.com/starford/agx/internal/ident"
	"github.com/starford/agx/internal/models"
	"github.com/starford/agx/internal/resolver"
	"github.com/starford/agx/internal/storage"
)

var now = time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func opts() Options {
	return Options{Kind: "RFC", Now: now}
}

func decode(t *testing.T, content string) models.Proposal {
	t.Helper()
	meta, _, err := frontmatter.Read(content)
	if err != nil {
		t.Fatalf("Read: %v\n%s", err, content)
	}
	var p models.Proposal
	if err := meta.Decode(&p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCreate_AllocatesSequentialIDs(t *testing.T) {
	store := newStore(t)

	first, err := Create(store, Request{Title: "Add parser", Authors: []string{"Roger"}}, opts())
	if err != nil {
		t.Fatalf("Create first: %v", err)
	}
	if first.ID.String() != "0001" || first.Path != "0001-add-parser.md" {
		t.Errorf("first = %+v", first)
	}

	second, err := Create(store, Request{Title: "Zzz cache", Authors: []string{"Roger"}}, opts())
	if err != nil {
		t.Fatalf("Create second: %v", err)
	}
	if second.ID.String() != "0002" || second.Path != "0002-zzz-cache.md" {
		t.Errorf("second = %+v", second)
	}
}

func TestCreate_RenderedDocument(t *testing.T) {
	store := newStore(t)
	if _, err := Create(store, Request{Title: "Base", Authors: []string{"Roger"}}, opts()); err != nil {
		t.Fatal(err)
	}

	res, err := Create(store, Request{
		Title:      `Quote "this" \ that`,
		Authors:    []string{"Roger", "Alice", "Roger"},
		Agents:     []string{"codex"},
		Discussion: "https://example.com/d/2",
		References: resolver.Lists{
			Prerequisite: []resolver.Reference{resolver.ByTitle("base"), resolver.ByID(1), resolver.ByID(9)},
		},
	}, opts())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	raw, err := store.Read(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	p := decode(t, string(raw))
	want := models.Proposal{
		ID:           2,
		Title:        `Quote "this" \ that`,
		Authors:      []string{"Roger", "Alice"},
		Agents:       []string{"codex"},
		Discussion:   "https://example.com/d/2",
		Prerequisite: []ident.ID{1, 9},
		Supersedes:   []ident.ID{},
		SupersededBy: []ident.ID{},
		Created:      "2026-10-15T07:00:00Z",
		LastUpdated:  "2026-10-15T07:00:00Z",
		History:      []models.HistoryEntry{{Timestamp: "2026-10-15T07:00:00Z", Change: models.ChangeInitialDraft}},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("metadata (-want +got):\n%s", diff)
	}
	if !strings.Contains(string(raw), "\n# RFC 0002: Quote \"this\" \\ that\n") {
		t.Errorf("heading missing:\n%s", raw)
	}
}

func TestCreate_TitleConflict(t *testing.T) {
	store := newStore(t)
	if _, err := Create(store, Request{Title: "example", Authors: []string{"Roger"}}, opts()); err != nil {
		t.Fatal(err)
	}

	_, err := Create(store, Request{Title: "Example", Authors: []string{"Roger"}}, opts())
	var dup *apperr.DuplicateTitleError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateTitleError", err)
	}
	if len(dup.Conflicts) != 1 || dup.Conflicts[0].ID != "0001" {
		t.Errorf("conflicts = %v", dup.Conflicts)
	}
	if !strings.Contains(err.Error(), "0001") {
		t.Errorf("message lacks existing id: %v", err)
	}

	files, _ := store.List()
	if len(files) != 1 {
		t.Errorf("files after failed create = %d", len(files))
	}
}

func TestCreate_RejectsInput(t *testing.T) {
	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"numeric title", Request{Title: " 0042 ", Authors: []string{"Roger"}}, apperr.ErrInvalidInput},
		{"empty title", Request{Title: "  ", Authors: []string{"Roger"}}, apperr.ErrInvalidInput},
		{"multi-line title", Request{Title: "a\nb", Authors: []string{"Roger"}}, apperr.ErrInvalidInput},
		{"no author", Request{Title: "Fine"}, apperr.ErrMissingRequiredField},
		{
			"unknown reference",
			Request{Title: "Fine", Authors: []string{"Roger"}, References: resolver.Lists{Supersedes: []resolver.Reference{resolver.ByTitle("Nope")}}},
			apperr.ErrReferenceNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStore(t)
			if _, err := Create(store, tc.req, opts()); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
			if files, _ := store.List(); len(files) != 0 {
				t.Errorf("files written on error: %v", files)
			}
		})
	}
}

func TestCreate_ValidatesRenderedID(t *testing.T) {
	store := newStore(t)
	if err := os.WriteFile(filepath.Join(store.Root(), "0001-x.md"), []byte("---\nid: \"0001\"\ntitle: \"x\"\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	badTemplate := "---\nid: \"0001\"\ntitle: \"{{ .title_yaml }}\"\n---\n"
	_, err := Create(store, Request{Title: "Other", Authors: []string{"Roger"}}, Options{Kind: "RFC", Now: now, Template: badTemplate})
	if !errors.Is(err, apperr.ErrInvalidMetadata) {
		t.Errorf("template with wrong id err = %v, want ErrInvalidMetadata", err)
	}
}

func TestCreate_CustomRenderer(t *testing.T) {
	store := newStore(t)
	var got map[string]any
	r := rendererFunc(func(tmpl string, data map[string]any) (string, error) {
		got = data
		return TextTemplateRenderer{}.Render(tmpl, data)
	})
	if _, err := Create(store, Request{Title: "Ctx", Authors: []string{"Roger"}}, Options{Kind: "ADR", Now: now, Renderer: r}); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{
		"id", "kind", "title", "title_yaml", "authors", "agents", "timestamp", "discussion", "tracking_issue",
		"prerequisite", "supersedes", "superseded_by", "revision_timestamp", "revision_change",
	} {
		if _, ok := got[key]; !ok {
			t.Errorf("context missing %q", key)
		}
	}
	if got["kind"] != "ADR" || got["revision_change"] != "Initial draft" {
		t.Errorf("context = %v", got)
	}
}

func TestRender_MissingKey(t *testing.T) {
	if _, err := (TextTemplateRenderer{}).Render("{{ .nope }}", map[string]any{}); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestEscape(t *testing.T) {
	if got := Escape("a \"b\" \\ c\nd"); got != `a \"b\" \\ c\nd` {
		t.Errorf("Escape = %q", got)
	}
}

type rendererFunc func(string, map[string]any) (string, error)

func (f rendererFunc) Render(tmpl string, data map[string]any) (string, error) { return f(tmpl, data) }
