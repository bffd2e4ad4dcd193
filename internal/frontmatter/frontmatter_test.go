package frontmatter

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/agx/internal/apperr"
)

const sample = `---
id: "0001"
title: "Add parser support"
authors: ["Roger"]
prerequisite: []
history:
  - timestamp: "2026-10-15T07:00:00Z"
    change: "Initial draft"
---

# RFC 0001: Add parser support

Body text.
`

func TestExtract(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		wantBlock string
		wantBody  string
	}{
		{"basic", "---\ntitle: x\n---\nbody\n", "title: x\n", "body\n"},
		{"empty block", "---\n---\nbody", "", "body"},
		{"no body", "---\ntitle: x\n---", "title: x\n", ""},
		{"crlf", "---\r\ntitle: x\r\n---\r\nbody\r\n", "title: x\n", "body\n"},
		{"longer dash line is content", "---\nnote: |\n  ----\n---\nb", "note: |\n  ----\n", "b"},
		{"second marker stays in body", "---\na: 1\n---\n---\n", "a: 1\n", "---\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			block, body, err := Extract(tc.raw)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if block != tc.wantBlock {
				t.Errorf("block = %q, want %q", block, tc.wantBlock)
			}
			if body != tc.wantBody {
				t.Errorf("body = %q, want %q", body, tc.wantBody)
			}
		})
	}
}

func TestExtract_Malformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"# no frontmatter\n",
		"--- \ntitle: x\n---\n",
		"---\ntitle: x\n",
		"---\ntitle: x\n--- \n",
		"\n---\ntitle: x\n---\n",
	} {
		_, _, err := Extract(raw)
		if !errors.Is(err, apperr.ErrMalformedDocument) {
			t.Errorf("Extract(%q) err = %v, want ErrMalformedDocument", raw, err)
		}
	}
}

func TestAssemble_NormalizesBlankLines(t *testing.T) {
	cases := []struct {
		block, body, want string
	}{
		{"a: 1\n", "# H\n", "---\na: 1\n---\n\n# H\n"},
		{"a: 1", "\n\n\n# H", "---\na: 1\n---\n\n# H\n"},
		{"a: 1\n", "# H\n\n\n", "---\na: 1\n---\n\n# H\n"},
		{"a: 1\n", "", "---\na: 1\n---\n"},
	}
	for _, tc := range cases {
		if got := Assemble(tc.block, tc.body); got != tc.want {
			t.Errorf("Assemble(%q, %q) = %q, want %q", tc.block, tc.body, got, tc.want)
		}
	}
}

func TestParse_InvalidMetadata(t *testing.T) {
	for _, block := range []string{
		"title: [unterminated\n",
		"- just\n- a list\n",
		"plain scalar\n",
		"title: a\ntitle: b\n",
	} {
		if _, err := Parse(block); !errors.Is(err, apperr.ErrInvalidMetadata) {
			t.Errorf("Parse(%q) err = %v, want ErrInvalidMetadata", block, err)
		}
	}
}

func TestParse_EmptyBlock(t *testing.T) {
	for _, block := range []string{"", "\n", "# only a comment\n"} {
		m, err := Parse(block)
		if err != nil {
			t.Fatalf("Parse(%q): %v", block, err)
		}
		if keys := m.Keys(); len(keys) != 0 {
			t.Errorf("Parse(%q) keys = %v, want none", block, keys)
		}
	}
}

func TestRead_Accessors(t *testing.T) {
	m, body, err := Read(sample)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff([]string{"id", "title", "authors", "prerequisite", "history"}, m.Keys()); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
	if title, ok := m.String("title"); !ok || title != "Add parser support" {
		t.Errorf("title = %q, %v", title, ok)
	}
	if _, ok := m.String("discussion"); ok {
		t.Error("missing key reported as present")
	}
	authors, err := m.StringList("authors")
	if err != nil {
		t.Fatalf("StringList: %v", err)
	}
	if diff := cmp.Diff([]string{"Roger"}, authors); diff != "" {
		t.Errorf("authors (-want +got):\n%s", diff)
	}
	if _, err := m.StringList("title"); !errors.Is(err, apperr.ErrInvalidMetadata) {
		t.Errorf("StringList on scalar err = %v", err)
	}
	if !strings.HasPrefix(body, "\n# RFC 0001") {
		t.Errorf("body = %q", body)
	}
}

func TestRoundTrip(t *testing.T) {
	m, body, err := Read(sample)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	out, err := Write(m, body)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	again, body2, err := Read(out)
	if err != nil {
		t.Fatalf("Read(Write): %v", err)
	}
	var want, got map[string]any
	if err := m.Decode(&want); err != nil {
		t.Fatal(err)
	}
	if err := again.Decode(&got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("metadata changed across round trip (-want +got):\n%s", diff)
	}
	if strings.TrimLeft(body2, "\n") != strings.TrimLeft(body, "\n") {
		t.Errorf("body changed: %q -> %q", body, body2)
	}
}

func TestMutations(t *testing.T) {
	m, err := Parse("# keep me\ntitle: \"Old\"\nauthors: [\"Roger\"]\nagents: \"codex\"\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	m.SetString("title", "New")
	m.SetString("discussion", "https://example.com/d/1")
	if err := m.AppendUniqueString("authors", "Alice"); err != nil {
		t.Fatal(err)
	}
	if err := m.AppendUniqueString("authors", "Roger"); err != nil {
		t.Fatal(err)
	}
	if err := m.AppendUniqueString("agents", "atlas"); !errors.Is(err, apperr.ErrInvalidMetadata) {
		t.Errorf("append to scalar err = %v, want ErrInvalidMetadata", err)
	}
	m.SetIntList("supersedes", []uint64{1, 3})
	if err := m.AppendMapping("history", Pair{"timestamp", "2026-10-15T07:00:00Z"}, Pair{"change", "Revised"}); err != nil {
		t.Fatal(err)
	}

	out, err := Serialize(m)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !strings.Contains(out, "# keep me") {
		t.Errorf("comment lost:\n%s", out)
	}

	var decoded struct {
		Title      string   `yaml:"title"`
		Authors    []string `yaml:"authors"`
		Discussion string   `yaml:"discussion"`
		Supersedes []int    `yaml:"supersedes"`
		History    []struct {
			Timestamp string `yaml:"timestamp"`
			Change    string `yaml:"change"`
		} `yaml:"history"`
	}
	reparsed, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse(Serialize): %v\n%s", err, out)
	}
	if err := reparsed.Decode(&decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Title != "New" || decoded.Discussion != "https://example.com/d/1" {
		t.Errorf("scalars = %+v", decoded)
	}
	if diff := cmp.Diff([]string{"Roger", "Alice"}, decoded.Authors); diff != "" {
		t.Errorf("authors (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 3}, decoded.Supersedes); diff != "" {
		t.Errorf("supersedes (-want +got):\n%s", diff)
	}
	if len(decoded.History) != 1 || decoded.History[0].Change != "Revised" {
		t.Errorf("history = %+v", decoded.History)
	}
}

func TestAppendMapping_RejectsScalarHistory(t *testing.T) {
	m, err := Parse("history: \"none\"\n")
	if err != nil {
		t.Fatal(err)
	}
	err = m.AppendMapping("history", Pair{"change", "Revised"})
	var fe *apperr.FieldError
	if !errors.As(err, &fe) || fe.Field != "history" {
		t.Errorf("err = %v, want FieldError for history", err)
	}
}
