// Package titleindex builds the in-memory (id, title, folded title, slug)
// view of a proposal corpus used for reference resolution.
package titleindex

import (
	"fmt"

	"github.com/starford/agx/internal/apperr"
	"github.com/starford/agx/internal/frontmatter"
	"github.com/starford/agx/internal/ident"
	"github.com/starford/agx/internal/models"
	"github.com/starford/agx/internal/storage"
)

// Entry is one indexed proposal.
type Entry struct {
	ID     ident.ID
	Title  string
	Folded string
	Slug   string
	Path   string
}

// Match returns the entry as an error-report match.
func (e Entry) Match() apperr.Match {
	return apperr.Match{ID: e.ID.String(), Title: e.Title}
}

// Index is a snapshot of every proposal title in a corpus. It is never
// cached between requests.
type Index struct {
	dir     string
	entries []Entry
}

// NewEntry derives the folded and slug forms of title.
func NewEntry(id ident.ID, title, path string) Entry {
	return Entry{
		ID:     id,
		Title:  title,
		Folded: ident.FoldTitle(title),
		Slug:   ident.Slugify(title),
		Path:   path,
	}
}

// New builds an index over prepared entries. dir is only used in messages.
func New(dir string, entries ...Entry) *Index {
	return &Index{dir: dir, entries: entries}
}

// Load reads every recognized proposal in store. Any file that cannot be
// parsed, or lacks an id or title, aborts the build.
func Load(store storage.Provider) (*Index, error) {
	files, err := store.List()
	if err != nil {
		return nil, fmt.Errorf("titleindex: %w", err)
	}
	idx := &Index{dir: store.Root(), entries: make([]Entry, 0, len(files))}
	for _, f := range files {
		data, err := store.Read(f.Path)
		if err != nil {
			return nil, fmt.Errorf("titleindex: %w", err)
		}
		id, title, err := ReadIdentity(data)
		if err != nil {
			return nil, fmt.Errorf("titleindex: %s: %w", f.Path, err)
		}
		idx.entries = append(idx.entries, NewEntry(id, title, f.Path))
	}
	return idx, nil
}

// LoadDir opens dir as a corpus and loads it.
func LoadDir(dir string) (*Index, error) {
	store, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("titleindex: %w", err)
	}
	return Load(store)
}

// ReadIdentity parses a document and returns its id and title.
func ReadIdentity(data []byte) (ident.ID, string, error) {
	meta, _, err := frontmatter.Read(string(data))
	if err != nil {
		return 0, "", err
	}
	return Identity(meta)
}

// Identity extracts the required id and title fields.
func Identity(meta *frontmatter.Metadata) (ident.ID, string, error) {
	raw, ok := meta.String(models.KeyID)
	if !ok {
		return 0, "", apperr.MissingField(models.KeyID)
	}
	id, err := ident.ParseID(raw)
	if err != nil {
		return 0, "", apperr.InvalidField(models.KeyID, err.Error())
	}
	title, ok := meta.String(models.KeyTitle)
	if !ok {
		return 0, "", apperr.MissingField(models.KeyTitle)
	}
	return id, title, nil
}

// Dir returns the corpus directory the index was built from.
func (x *Index) Dir() string { return x.dir }

// Entries returns the indexed proposals in corpus order.
func (x *Index) Entries() []Entry { return x.entries }

// Len returns the number of indexed proposals.
func (x *Index) Len() int { return len(x.entries) }

// IDs returns every indexed id.
func (x *Index) IDs() []ident.ID {
	ids := make([]ident.ID, len(x.entries))
	for i, e := range x.entries {
		ids[i] = e.ID
	}
	return ids
}
