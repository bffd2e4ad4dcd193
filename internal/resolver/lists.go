package resolver

import (
	"github.com/starford/agx/internal/ident"
	"github.com/starford/agx/internal/titleindex"
)

// Lists holds the three reference lists of an edit request.
type Lists struct {
	Prerequisite []Reference
	Supersedes   []Reference
	SupersededBy []Reference
}

// ParseLists parses raw reference strings into Lists.
func ParseLists(prerequisite, supersedes, supersededBy []string) (Lists, error) {
	var (
		l   Lists
		err error
	)
	if l.Prerequisite, err = ParseReferences(prerequisite); err != nil {
		return Lists{}, err
	}
	if l.Supersedes, err = ParseReferences(supersedes); err != nil {
		return Lists{}, err
	}
	if l.SupersededBy, err = ParseReferences(supersededBy); err != nil {
		return Lists{}, err
	}
	return l, nil
}

// Resolved holds deduplicated id lists. A nil list means the request did not
// supply that field.
type Resolved struct {
	Prerequisite []ident.ID
	Supersedes   []ident.ID
	SupersededBy []ident.ID
}

// Loader builds a fresh title index.
type Loader func() (*titleindex.Index, error)

func (l Lists) needsIndex() bool {
	for _, list := range [][]Reference{l.Prerequisite, l.Supersedes, l.SupersededBy} {
		for _, r := range list {
			if !r.isID {
				return true
			}
		}
	}
	return false
}

// ResolveLists resolves all three lists. The index is loaded once, and only
// when a title reference is present.
func ResolveLists(load Loader, lists Lists) (Resolved, error) {
	var idx *titleindex.Index
	if lists.needsIndex() {
		var err error
		if idx, err = load(); err != nil {
			return Resolved{}, err
		}
	}

	var (
		out Resolved
		err error
	)
	if out.Prerequisite, err = resolveList(idx, lists.Prerequisite); err != nil {
		return Resolved{}, err
	}
	if out.Supersedes, err = resolveList(idx, lists.Supersedes); err != nil {
		return Resolved{}, err
	}
	if out.SupersededBy, err = resolveList(idx, lists.SupersededBy); err != nil {
		return Resolved{}, err
	}
	return out, nil
}

func resolveList(idx *titleindex.Index, refs []Reference) ([]ident.ID, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	ids := make([]ident.ID, 0, len(refs))
	for _, r := range refs {
		id, err := Resolve(idx, r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ident.Dedupe(ids), nil
}
