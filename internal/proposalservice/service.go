// Package proposalservice coordinates the corpus, the proposal engine and the
// SQLite catalog behind one API used by the CLI, REST and MCP transports.
package proposalservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/agx/internal/apperr"
	"github.com/starford/agx/internal/checksum"
	"github.com/starford/agx/internal/creation"
	"github.com/starford/agx/internal/frontmatter"
	"github.com/starford/agx/internal/ident"
	"github.com/starford/agx/internal/index"
	"github.com/starford/agx/internal/models"
	"github.com/starford/agx/internal/resolver"
	"github.com/starford/agx/internal/revision"
	"github.com/starford/agx/internal/storage"
	"github.com/starford/agx/internal/titleindex"
)

// DefaultKind is the heading kind used when none is configured.
const DefaultKind = "RFC"

// Store is a corpus that can also turn a user selector into a file path.
type Store interface {
	storage.Provider
	Locate(selector string) (string, error)
}

// Detail is the full representation of a proposal.
type Detail struct {
	models.Proposal
	Referrers []models.Link `json:"referrers"`
}

// ListItem is a lightweight item in a list response.
type ListItem struct {
	Path        string   `json:"path"`
	ID          ident.ID `json:"id"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	LastUpdated string   `json:"last_updated,omitempty"`
}

// Resolution is the outcome of resolving a single reference.
type Resolution struct {
	Input string   `json:"input"`
	ID    ident.ID `json:"id"`
	Title string   `json:"title,omitempty"`
	Path  string   `json:"path,omitempty"`
}

// Result describes a written proposal.
type Result struct {
	Path     string   `json:"path"`
	ID       ident.ID `json:"id"`
	Title    string   `json:"title"`
	Checksum string   `json:"checksum"`
	Content  string   `json:"content"`
}

// CreateRequest is the transport-neutral input of Create. Reference lists
// hold ids or titles as typed by the user.
type CreateRequest struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Agents        []string `json:"agents"`
	Discussion    string   `json:"discussion"`
	TrackingIssue string   `json:"tracking_issue"`
	Prerequisite  []string `json:"prerequisite"`
	Supersedes    []string `json:"supersedes"`
	SupersededBy  []string `json:"superseded_by"`
}

// Validate checks the request shape. Semantic checks (title conflicts,
// reference resolution) happen in the pipeline.
func (r CreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Authors, validation.Each(validation.Required)),
		validation.Field(&r.Agents, validation.Each(validation.Required)),
		validation.Field(&r.Prerequisite, validation.Each(validation.Required)),
		validation.Field(&r.Supersedes, validation.Each(validation.Required)),
		validation.Field(&r.SupersededBy, validation.Each(validation.Required)),
	)
}

func validateEdit(req models.EditRequest) error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&req.Authors, validation.Each(validation.Required)),
		validation.Field(&req.Agents, validation.Each(validation.Required)),
		validation.Field(&req.Prerequisite, validation.Each(validation.Required)),
		validation.Field(&req.Supersedes, validation.Each(validation.Required)),
		validation.Field(&req.SupersededBy, validation.Each(validation.Required)),
	)
}

// Option configures a Service.
type Option func(*Service)

// WithCatalog attaches the SQLite catalog used for listing, search, the
// reference graph and referrers. Writes are re-indexed into it.
func WithCatalog(db index.Catalog) Option {
	return func(s *Service) { s.db = db }
}

// WithKind sets the document kind used in headings ("RFC").
func WithKind(kind string) Option {
	return func(s *Service) { s.kind = kind }
}

// WithTemplate sets the creation template text.
func WithTemplate(tmpl string) Option {
	return func(s *Service) { s.template = tmpl }
}

// WithRenderer replaces the template engine.
func WithRenderer(r creation.Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDefaultAuthor supplies an author name used when a create request has
// none, typically the VCS user name.
func WithDefaultAuthor(fn func() string) Option {
	return func(s *Service) { s.defaultAuthor = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service coordinates storage, the proposal engine and the catalog.
// Create and Revise are serialized within the process.
type Service struct {
	mu sync.Mutex

	store         Store
	db            index.Catalog
	kind          string
	template      string
	renderer      creation.Renderer
	now           func() time.Time
	defaultAuthor func() string
	logger        *slog.Logger
}

// NewService creates a new proposal service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		kind:   DefaultKind,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the corpus directory.
func (s *Service) Root() string { return s.store.Root() }

// Create validates req, allocates the next id and writes the new proposal.
func (s *Service) Create(_ context.Context, req CreateRequest) (res *Result, err error) {
	defer observe("create", time.Now(), &err)

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	lists, err := resolver.ParseLists(req.Prerequisite, req.Supersedes, req.SupersededBy)
	if err != nil {
		return nil, err
	}
	authors := req.Authors
	if len(authors) == 0 && s.defaultAuthor != nil {
		if name := strings.TrimSpace(s.defaultAuthor()); name != "" {
			authors = []string{name}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := creation.Create(s.store, creation.Request{
		Title:         req.Title,
		Authors:       authors,
		Agents:        req.Agents,
		Discussion:    req.Discussion,
		TrackingIssue: req.TrackingIssue,
		References:    lists,
	}, creation.Options{
		Kind:     s.kind,
		Template: s.template,
		Renderer: s.renderer,
		Now:      s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("proposal created",
		slog.String("path", out.Path),
		slog.String("id", out.ID.String()),
		slog.String("title", out.Title))
	s.reindex(out.Path, []byte(out.Content))

	return &Result{
		Path:     out.Path,
		ID:       out.ID,
		Title:    out.Title,
		Checksum: checksum.Sum([]byte(out.Content)),
		Content:  out.Content,
	}, nil
}

// Revise locates the proposal named by selector and merges req into it.
// A non-empty ifMatch must equal the checksum of the current file.
func (s *Service) Revise(_ context.Context, selector string, req models.EditRequest, ifMatch string) (res *Result, err error) {
	defer observe("revise", time.Now(), &err)

	if err := validateEdit(req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	lists, err := resolver.ParseLists(req.Prerequisite, req.Supersedes, req.SupersededBy)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.store.Locate(selector)
	if err != nil {
		return nil, err
	}
	if checksum.Normalize(ifMatch) != "" {
		current, err := s.read(path)
		if err != nil {
			return nil, err
		}
		if !checksum.Matches(current, ifMatch) {
			return nil, fmt.Errorf("%w: %s changed since it was read", apperr.ErrConflict, path)
		}
	}

	refs, err := resolver.ResolveLists(func() (*titleindex.Index, error) {
		return titleindex.Load(s.store)
	}, lists)
	if err != nil {
		return nil, err
	}

	out, err := revision.Revise(s.store, path, req, refs, revision.Options{Kind: s.kind, Now: s.now()})
	if err != nil {
		return nil, notFound(err)
	}

	s.logger.Info("proposal revised",
		slog.String("path", out.Path),
		slog.String("id", out.ID.String()))
	s.reindex(out.Path, []byte(out.Content))

	return &Result{
		Path:     out.Path,
		ID:       out.ID,
		Title:    out.Title,
		Checksum: checksum.Sum([]byte(out.Content)),
		Content:  out.Content,
	}, nil
}

// Get reads the proposal named by selector and enriches it with referrers
// from the catalog when one is attached.
func (s *Service) Get(_ context.Context, selector string) (d *Detail, err error) {
	defer observe("get", time.Now(), &err)

	path, err := s.store.Locate(selector)
	if err != nil {
		return nil, err
	}
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	meta, body, err := frontmatter.Read(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	id, _, err := titleindex.Identity(meta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	d = &Detail{Referrers: []models.Link{}}
	if err := meta.Decode(&d.Proposal); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d.Path = path
	d.Checksum = checksum.Sum(data)
	d.Body = body

	if s.db != nil {
		refs, err := s.db.Referrers(id)
		if err != nil {
			return nil, err
		}
		if refs != nil {
			d.Referrers = refs
		}
	}
	return d, nil
}

// List returns one page of proposals. Without a catalog the corpus is read
// directly and author and sort are ignored.
func (s *Service) List(_ context.Context, limit, offset int, author, sort string) (items []ListItem, total int, err error) {
	defer observe("list", time.Now(), &err)

	if s.db == nil {
		idx, err := titleindex.Load(s.store)
		if err != nil {
			return nil, 0, err
		}
		entries := idx.Entries()
		items = make([]ListItem, 0, len(entries))
		for _, e := range page(entries, limit, offset) {
			items = append(items, ListItem{Path: e.Path, ID: e.ID, Title: e.Title, Authors: []string{}})
		}
		return items, len(entries), nil
	}

	rows, total, err := s.db.ListProposals(limit, offset, author, sort)
	if err != nil {
		return nil, 0, err
	}
	items = make([]ListItem, len(rows))
	for i, r := range rows {
		authors := r.Authors
		if authors == nil {
			authors = []string{}
		}
		items[i] = ListItem{
			Path:        r.Path,
			ID:          r.ID,
			Title:       r.Title,
			Authors:     authors,
			LastUpdated: r.LastUpdated,
		}
	}
	return items, total, nil
}

// Resolve resolves a single id or title reference against the corpus.
func (s *Service) Resolve(_ context.Context, input string) (r *Resolution, err error) {
	defer observe("resolve", time.Now(), &err)

	ref, err := resolver.ParseReference(input)
	if err != nil {
		return nil, err
	}
	idx, err := titleindex.Load(s.store)
	if err != nil {
		return nil, err
	}
	id, err := resolver.Resolve(idx, ref)
	if err != nil {
		return nil, err
	}
	r = &Resolution{Input: strings.TrimSpace(input), ID: id}
	for _, e := range idx.Entries() {
		if e.ID == id {
			r.Title, r.Path = e.Title, e.Path
			break
		}
	}
	return r, nil
}

// CheckTitle reports whether title could be used for a new proposal.
func (s *Service) CheckTitle(_ context.Context, title string) error {
	if _, err := creation.ValidateTitle(title); err != nil {
		return err
	}
	idx, err := titleindex.Load(s.store)
	if err != nil {
		return err
	}
	return resolver.EnsureUniqueTitle(idx, title)
}

// Search delegates full-text search to the catalog.
func (s *Service) Search(_ context.Context, query string, limit int) (_ []index.SearchResult, err error) {
	defer observe("search", time.Now(), &err)
	if s.db == nil {
		return nil, errNoCatalog
	}
	return s.db.Search(query, limit)
}

// Graph returns all proposals and the references between them.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []models.Link, error) {
	if s.db == nil {
		return nil, nil, errNoCatalog
	}
	return s.db.Graph()
}

var errNoCatalog = errors.New("proposalservice: no catalog configured")

func (s *Service) read(path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, notFound(err)
	}
	return data, nil
}

func (s *Service) reindex(path string, data []byte) {
	if s.db == nil {
		return
	}
	if err := index.IndexFile(s.db, path, data); err != nil {
		s.logger.Warn("reindex failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func notFound(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", apperr.ErrNotFound, err)
	}
	return err
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
