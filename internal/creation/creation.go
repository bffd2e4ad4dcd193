// Package creation assembles and writes brand-new proposal documents.
package creation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/agx/internal/apperr"
	"github.com/starford/agx/internal/frontmatter"
	"github.com/starford/agx/internal/ident"
	"github.com/starford/agx/internal/models"
	"github.com/starford/agx/internal/resolver"
	"github.com/starford/agx/internal/storage"
	"github.com/starford/agx/internal/titleindex"
)

// Request is the input of Create.
type Request struct {
	Title         string
	Authors       []string
	Agents        []string
	Discussion    string
	TrackingIssue string
	References    resolver.Lists
}

// Options controls rendering.
type Options struct {
	Kind     string
	Template string
	Renderer Renderer
	Now      time.Time
}

// Result describes a created document.
type Result struct {
	Path    string
	ID      ident.ID
	Title   string
	Content string
}

// ValidateTitle rejects titles that cannot name a new proposal: empty,
// multi-line, or all digits (those are read as ids by selectors).
func ValidateTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	switch {
	case t == "":
		return "", fmt.Errorf("%w: title cannot be empty", apperr.ErrInvalidInput)
	case strings.ContainsAny(t, "\r\n"):
		return "", fmt.Errorf("%w: title must be a single line", apperr.ErrInvalidInput)
	case ident.IsNumeric(t):
		return "", fmt.Errorf("%w: numeric-only title `%s` is not accepted; numeric values are treated as ids",
			apperr.ErrInvalidInput, t)
	}
	return t, nil
}

// Create checks the title against the corpus, allocates the next id,
// resolves references, renders the template and creates the file. An
// existing file at the target path is never replaced.
func Create(store storage.Provider, req Request, opts Options) (*Result, error) {
	title, err := ValidateTitle(req.Title)
	if err != nil {
		return nil, err
	}

	idx, err := titleindex.Load(store)
	if err != nil {
		return nil, err
	}
	if err := resolver.EnsureUniqueTitle(idx, title); err != nil {
		return nil, err
	}

	authors := ident.Dedupe(req.Authors)
	if len(authors) == 0 {
		return nil, apperr.MissingField(models.KeyAuthors)
	}

	id := ident.Next(fileIDs(idx))
	path := ident.FileName(id, ident.Slugify(title))

	refs, err := resolver.ResolveLists(func() (*titleindex.Index, error) { return idx, nil }, req.References)
	if err != nil {
		return nil, err
	}
	ts := ident.Timestamp(opts.Now)

	data := map[string]any{
		"id":                 id.String(),
		"kind":               opts.Kind,
		"title":              title,
		"title_yaml":         Escape(title),
		"authors":            escapeAll(authors),
		"agents":             escapeAll(ident.Dedupe(req.Agents)),
		"timestamp":          ts,
		"discussion":         Escape(req.Discussion),
		"tracking_issue":     Escape(req.TrackingIssue),
		"prerequisite":       idStrings(refs.Prerequisite),
		"supersedes":         idStrings(refs.Supersedes),
		"superseded_by":      idStrings(refs.SupersededBy),
		"revision_timestamp": ts,
		"revision_change":    Escape(models.ChangeInitialDraft),
	}

	renderer := opts.Renderer
	if renderer == nil {
		renderer = TextTemplateRenderer{}
	}
	tmpl := opts.Template
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	rendered, err := renderer.Render(tmpl, data)
	if err != nil {
		return nil, err
	}
	if err := validate(rendered, id); err != nil {
		return nil, err
	}

	if err := store.Create(path, []byte(rendered)); err != nil {
		return nil, fmt.Errorf("creation: %w", err)
	}
	return &Result{Path: path, ID: id, Title: title, Content: rendered}, nil
}

// validate checks that the rendered text is a readable document carrying
// the allocated id.
func validate(rendered string, id ident.ID) error {
	meta, _, err := frontmatter.Read(rendered)
	if err != nil {
		return fmt.Errorf("creation: rendered template: %w", err)
	}
	got, _, err := titleindex.Identity(meta)
	if err != nil {
		return fmt.Errorf("creation: rendered template: %w", err)
	}
	if got != id {
		return fmt.Errorf("creation: rendered template: %w", apperr.InvalidField(models.KeyID,
			fmt.Sprintf("is %s, want %s", got, id)))
	}
	return nil
}

func fileIDs(idx *titleindex.Index) []ident.ID {
	ids := make([]ident.ID, 0, idx.Len())
	for _, e := range idx.Entries() {
		if id, ok := ident.FileID(e.Path); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func idStrings(ids []ident.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatUint(uint64(id), 10)
	}
	return out
}
