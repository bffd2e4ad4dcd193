// Package ident allocates proposal identifiers and derives filename slugs.
package ident

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Width is the zero-padded width of a formatted identifier.
const Width = 4

// TemplateFile is the reserved template name inside the corpus directory.
const TemplateFile = "0000-template.md"

// First is the identifier handed out in an empty corpus.
const First ID = 1

var fileNameRe = regexp.MustCompile(`^([0-9]{4,})(?:-.*)?\.md$`)

// ID is a proposal identifier.
type ID uint32

// String returns the zero-padded form, e.g. "0007".
func (id ID) String() string {
	return fmt.Sprintf("%0*d", Width, uint32(id))
}

// MarshalText encodes the padded form, so JSON carries "0007".
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText accepts padded or unpadded decimal text.
func (id *ID) UnmarshalText(b []byte) error {
	v, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// UnmarshalYAML accepts both `id: "0007"` and `id: 7`.
func (id *ID) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid id: expected a scalar at line %d", value.Line)
	}
	return id.UnmarshalText([]byte(value.Value))
}

// ParseID parses a decimal identifier, with or without zero padding.
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" || !IsNumeric(s) {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return ID(n), nil
}

// IsNumeric reports whether s is a non-empty run of ASCII digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FileID extracts the identifier from a proposal file name such as
// "0012-add-parser.md". The reserved template and any name without a
// numeric prefix of at least Width digits are rejected.
func FileID(name string) (ID, bool) {
	if name == TemplateFile {
		return 0, false
	}
	m := fileNameRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	id, err := ParseID(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// FileName builds the on-disk name for a proposal.
func FileName(id ID, slug string) string {
	return id.String() + "-" + slug + ".md"
}

// Next returns one more than the largest identifier in ids, or First when
// ids is empty.
func Next(ids []ID) ID {
	var max ID
	for _, id := range ids {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// Slugify lower-cases ASCII letters, folds runs of whitespace, '-' and '_'
// into one '-', drops everything outside [a-z0-9-] and trims dashes.
// Returns "untitled" when nothing survives.
func Slugify(title string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v' || r == '-' || r == '_':
			if b.Len() > 0 {
				pendingDash = true
			}
			continue
		default:
			continue
		}
		if pendingDash {
			b.WriteByte('-')
			pendingDash = false
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}

// FoldTitle trims and ASCII-lowercases a title for case-insensitive matching.
func FoldTitle(title string) string {
	s := strings.TrimSpace(title)
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Dedupe returns values with repeats removed, keeping first-seen order.
func Dedupe[T comparable](values []T) []T {
	seen := make(map[T]struct{}, len(values))
	out := make([]T, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Timestamp formats t as RFC 3339 in UTC with seconds precision.
func Timestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}
