// Package resolver turns proposal references (numeric ids or titles) into
// identifiers using a title index.
package resolver

import (
	"fmt"
	"strings"

	"github.com/starford/agx/internal/apperr"
	"github.com/starford/agx/internal/ident"
	"github.com/starford/agx/internal/titleindex"
)

// Reference is either a numeric id or a title to resolve.
type Reference struct {
	id    ident.ID
	title string
	isID  bool
}

// ByID returns a reference to a known id.
func ByID(id ident.ID) Reference { return Reference{id: id, isID: true} }

// ByTitle returns a reference resolved by title.
func ByTitle(title string) Reference { return Reference{title: title} }

// ParseReference classifies s: an all-digit string is an id, anything else
// is a title.
func ParseReference(s string) (Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reference{}, fmt.Errorf("%w: reference cannot be empty", apperr.ErrInvalidInput)
	}
	if ident.IsNumeric(s) {
		id, err := ident.ParseID(s)
		if err != nil {
			return Reference{}, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
		}
		return ByID(id), nil
	}
	return ByTitle(s), nil
}

// ParseReferences parses every element of raw.
func ParseReferences(raw []string) ([]Reference, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Reference, 0, len(raw))
	for _, s := range raw {
		ref, err := ParseReference(s)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

// IsID reports whether the reference is a numeric id.
func (r Reference) IsID() bool { return r.isID }

func (r Reference) String() string {
	if r.isID {
		return r.id.String()
	}
	return r.title
}

type query struct {
	title  string
	folded string
	slug   string
}

func newQuery(title string) query {
	t := strings.TrimSpace(title)
	return query{title: t, folded: ident.FoldTitle(t), slug: ident.Slugify(t)}
}

type tier struct {
	name  string
	match func(e titleindex.Entry, q query) bool
}

var (
	exactTier = tier{"exact title", func(e titleindex.Entry, q query) bool { return e.Title == q.title }}
	foldTier  = tier{"case-insensitive title", func(e titleindex.Entry, q query) bool { return e.Folded == q.folded }}
	slugTier  = tier{"slug", func(e titleindex.Entry, q query) bool { return e.Slug == q.slug }}
)

// resolveTiers are tried in order; the first tier with any match decides.
var resolveTiers = []tier{exactTier, foldTier, slugTier}

func filter(idx *titleindex.Index, q query, match func(titleindex.Entry, query) bool) []titleindex.Entry {
	var out []titleindex.Entry
	for _, e := range idx.Entries() {
		if match(e, q) {
			out = append(out, e)
		}
	}
	return out
}

func matches(entries []titleindex.Entry) []apperr.Match {
	out := make([]apperr.Match, len(entries))
	for i, e := range entries {
		out[i] = e.Match()
	}
	return out
}

// Resolve returns the id a reference points at. Ids pass through without an
// existence check. Titles go through the exact, case-insensitive and slug
// tiers; more than one match within a tier is an error and does not fall
// through to the next tier.
func Resolve(idx *titleindex.Index, ref Reference) (ident.ID, error) {
	if ref.isID {
		return ref.id, nil
	}
	q := newQuery(ref.title)
	if q.title == "" {
		return 0, fmt.Errorf("%w: title reference cannot be empty", apperr.ErrInvalidInput)
	}

	for _, t := range resolveTiers {
		found := filter(idx, q, t.match)
		switch len(found) {
		case 0:
			continue
		case 1:
			return found[0].ID, nil
		default:
			return 0, &apperr.AmbiguousReferenceError{Input: q.title, Tier: t.name, Matches: matches(found)}
		}
	}
	return 0, &apperr.ReferenceNotFoundError{Input: q.title, Dir: idx.Dir()}
}

// Conflicts returns every entry whose title equals title after case folding
// or slugging. Exact matches are covered by the case-folded comparison.
func Conflicts(idx *titleindex.Index, title string) []titleindex.Entry {
	q := newQuery(title)
	if q.title == "" {
		return nil
	}
	return filter(idx, q, func(e titleindex.Entry, q query) bool {
		return foldTier.match(e, q) || slugTier.match(e, q)
	})
}

// EnsureUniqueTitle fails with a DuplicateTitleError listing every conflict.
func EnsureUniqueTitle(idx *titleindex.Index, title string) error {
	found := Conflicts(idx, title)
	if len(found) == 0 {
		return nil
	}
	return &apperr.DuplicateTitleError{
		Title:     strings.TrimSpace(title),
		Dir:       idx.Dir(),
		Conflicts: matches(found),
	}
}
