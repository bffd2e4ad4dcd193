package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/agx/internal/apperr"
	"github.com/starford/agx/internal/ident"
)

func tempCorpus(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempCorpus(t)
	content := []byte("---\nid: \"0001\"\n---\n")
	if err := s.Write("0001-first.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("0001-first.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestCreate_RefusesExisting(t *testing.T) {
	s := tempCorpus(t)
	if err := s.Create("0001-first.md", []byte("one")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create("0001-first.md", []byte("two"))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("second Create err = %v, want ErrAlreadyExists", err)
	}
	got, _ := s.Read("0001-first.md")
	if string(got) != "one" {
		t.Errorf("existing file overwritten: %q", got)
	}
}

func TestList_RecognizedFilesOnly(t *testing.T) {
	s := tempCorpus(t)
	for _, name := range []string{
		"0003-third.md", "0001-first.md", ident.TemplateFile, "README.md", "0002-notes.txt", "10000-big.md",
	} {
		if err := s.Write(name, []byte(name)); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(s.Root(), "0004-dir.md"), 0o755); err != nil {
		t.Fatal(err)
	}

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var got []string
	for _, it := range items {
		got = append(got, it.Path)
		if it.Checksum == "" {
			t.Errorf("%s: empty checksum", it.Path)
		}
	}
	if diff := cmp.Diff([]string{"0001-first.md", "0003-third.md", "10000-big.md"}, got); diff != "" {
		t.Errorf("List (-want +got):\n%s", diff)
	}
}

func TestList_MissingRoot(t *testing.T) {
	s := tempCorpus(t)
	if err := os.RemoveAll(s.Root()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.List(); !errors.Is(err, apperr.ErrCorpusUnavailable) {
		t.Errorf("err = %v, want ErrCorpusUnavailable", err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempCorpus(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if err := s.Create(p, []byte("x")); err == nil {
			t.Errorf("expected error for create of %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempCorpus(t)
	_ = s.Write("0001-a.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("0001-a.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("0001-a.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	entries, _ := os.ReadDir(s.Root())
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("leftover files: %v", names)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, apperr.ErrCorpusUnavailable) {
		t.Errorf("err = %v, want ErrCorpusUnavailable", err)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(f); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestLocate(t *testing.T) {
	s := tempCorpus(t)
	for _, name := range []string{"0001-add-parser.md", "0002-parser-cache.md", "0012-release-notes.md", ident.TemplateFile} {
		if err := s.Write(name, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}

	cases := []struct {
		selector string
		want     string
	}{
		{"1", "0001-add-parser.md"},
		{"0012", "0012-release-notes.md"},
		{"0002-parser-cache.md", "0002-parser-cache.md"},
		{"0002-parser-cache", "0002-parser-cache.md"},
		{filepath.Join(s.Root(), "0001-add-parser.md"), "0001-add-parser.md"},
		{"Release Notes", "0012-release-notes.md"},
		{"add parser", "0001-add-parser.md"},
	}
	for _, tc := range cases {
		got, err := s.Locate(tc.selector)
		if err != nil {
			t.Errorf("Locate(%q): %v", tc.selector, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Locate(%q) = %q, want %q", tc.selector, got, tc.want)
		}
	}

	if _, err := s.Locate("7"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing id err = %v", err)
	}
	if _, err := s.Locate("parser"); !errors.Is(err, apperr.ErrAmbiguousReference) {
		t.Errorf("ambiguous slug err = %v", err)
	}
	if _, err := s.Locate("0000-template.md"); err == nil {
		t.Error("template must not be locatable")
	}
}
