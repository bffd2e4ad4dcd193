// Package revision applies edit requests to existing proposal documents.
//
// A revision is a Transaction that moves through Loaded, Merged, Rewritten
// and Persisted. Every step before Persisted works in memory, so a failure
// at any point leaves the file on disk untouched.
package revision

import (
	"fmt"
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

// State is the position of a Transaction in its lifecycle.
type State int

const (
	Loaded State = iota
	Merged
	Rewritten
	Persisted
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Merged:
		return "merged"
	case Rewritten:
		return "rewritten"
	case Persisted:
		return "persisted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Transaction is one in-memory edit of a document.
type Transaction struct {
	meta  *frontmatter.Metadata
	body  string
	state State

	id    ident.ID
	title string
}

// Load splits and parses raw document text.
func Load(raw string) (*Transaction, error) {
	meta, body, err := frontmatter.Read(raw)
	if err != nil {
		return nil, err
	}
	return &Transaction{meta: meta, body: body, state: Loaded}, nil
}

// State returns the current lifecycle state.
func (tx *Transaction) State() State { return tx.state }

func (tx *Transaction) expect(s State, op string) error {
	if tx.state != s {
		return fmt.Errorf("revision: %s requires state %s, have %s", op, s, tx.state)
	}
	return nil
}

// Merge applies req to the metadata. Authors and agents are appended when not
// already listed. Scalars are overwritten. A reference list in refs replaces
// the stored list when non-empty. Every merge sets last_updated to now and
// appends one "Revised" history entry.
func (tx *Transaction) Merge(req models.EditRequest, refs resolver.Resolved, now time.Time) error {
	if err := tx.expect(Loaded, "merge"); err != nil {
		return err
	}

	for _, author := range ident.Dedupe(req.Authors) {
		if err := tx.meta.AppendUniqueString(models.KeyAuthors, author); err != nil {
			return err
		}
	}
	for _, agent := range ident.Dedupe(req.Agents) {
		if err := tx.meta.AppendUniqueString(models.KeyAgents, agent); err != nil {
			return err
		}
	}

	if req.Discussion != nil {
		tx.meta.SetString(models.KeyDiscussion, *req.Discussion)
	}
	if req.TrackingIssue != nil {
		tx.meta.SetString(models.KeyTrackingIssue, *req.TrackingIssue)
	}

	for _, l := range []struct {
		key string
		ids []ident.ID
	}{
		{models.KeyPrerequisite, refs.Prerequisite},
		{models.KeySupersedes, refs.Supersedes},
		{models.KeySupersededBy, refs.SupersededBy},
	} {
		if len(l.ids) > 0 {
			tx.meta.SetIntList(l.key, toUint(l.ids))
		}
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return fmt.Errorf("%w: title cannot be empty", apperr.ErrInvalidInput)
		}
		tx.meta.SetString(models.KeyTitle, title)
	}

	ts := ident.Timestamp(now)
	tx.meta.SetString(models.KeyLastUpdated, ts)
	if err := tx.meta.AppendMapping(models.KeyHistory,
		frontmatter.Pair{Key: "timestamp", Value: ts},
		frontmatter.Pair{Key: "change", Value: models.ChangeRevised},
	); err != nil {
		return err
	}

	id, title, err := titleindex.Identity(tx.meta)
	if err != nil {
		return err
	}
	tx.id, tx.title = id, title
	tx.state = Merged
	return nil
}

// Rewrite updates the "# <kind> <id>: <title>" heading of the body, or
// inserts one above the body when none exists.
func (tx *Transaction) Rewrite(kind string) error {
	if err := tx.expect(Merged, "rewrite"); err != nil {
		return err
	}
	tx.body = RewriteHeading(tx.body, kind, tx.id, tx.title)
	tx.state = Rewritten
	return nil
}

// Render serializes the edited document.
func (tx *Transaction) Render() (string, error) {
	if err := tx.expect(Rewritten, "render"); err != nil {
		return "", err
	}
	return frontmatter.Write(tx.meta, tx.body)
}

// ID returns the document id once merged.
func (tx *Transaction) ID() ident.ID { return tx.id }

// Title returns the document title once merged.
func (tx *Transaction) Title() string { return tx.title }

// Heading formats the top-level heading line of a document.
func Heading(kind string, id ident.ID, title string) string {
	return fmt.Sprintf("# %s %s: %s", kind, id, title)
}

// RewriteHeading replaces the first line that starts with "# <kind> " and
// keeps every other line as is. Without such a line the heading is put in
// front of body, separated by one blank line.
func RewriteHeading(body, kind string, id ident.ID, title string) string {
	heading := Heading(kind, id, title)
	prefix := "# " + kind + " "

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, prefix) {
			lines[i] = heading
			return strings.Join(lines, "\n")
		}
	}

	rest := strings.TrimLeft(body, "\n")
	if rest == "" {
		return heading + "\n"
	}
	return heading + "\n\n" + rest
}

// Options controls Revise.
type Options struct {
	Kind string
	Now  time.Time
}

// Result describes a persisted revision.
type Result struct {
	Path    string
	ID      ident.ID
	Title   string
	Content string
}

// Revise runs a whole transaction against the file at path and writes the
// result back. Nothing is written unless every step succeeds.
func Revise(store storage.Provider, path string, req models.EditRequest, refs resolver.Resolved, opts Options) (*Result, error) {
	raw, err := store.Read(path)
	if err != nil {
		return nil, fmt.Errorf("revision: %w", err)
	}
	tx, err := Load(string(raw))
	if err != nil {
		return nil, fmt.Errorf("revision: %s: %w", path, err)
	}
	if err := tx.Merge(req, refs, opts.Now); err != nil {
		return nil, fmt.Errorf("revision: %s: %w", path, err)
	}
	if err := tx.Rewrite(opts.Kind); err != nil {
		return nil, fmt.Errorf("revision: %s: %w", path, err)
	}
	out, err := tx.Render()
	if err != nil {
		return nil, fmt.Errorf("revision: %s: %w", path, err)
	}
	if err := store.Write(path, []byte(out)); err != nil {
		return nil, fmt.Errorf("revision: %w", err)
	}
	tx.state = Persisted
	return &Result{Path: path, ID: tx.id, Title: tx.title, Content: out}, nil
}

func toUint(ids []ident.ID) []uint64 {
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}
	return out
}
