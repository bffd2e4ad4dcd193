package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/agx/internal/checksum"
	"github.com/starford/agx/internal/models"
	"github.com/starford/agx/internal/proposalservice"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *proposalservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *proposalservice.Service) *Handler {
	return &Handler{svc: svc}
}

// selectorParam extracts the proposal selector from the URL (everything after
// /proposals/). Encoded slashes and spaces are decoded.
func selectorParam(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListProposals handles GET /api/proposals.
//
//	@Summary		List proposals with optional pagination and filtering
//	@Tags			proposals
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			author	query		string	false	"Filter by author"
//	@Param			sort	query		string	false	"Sort field"	Enums(id, title, updated)
//	@Success		200		{object}	ProposalListResponse
//	@Security		BearerAuth
//	@Router			/proposals [get]
func (h *Handler) ListProposals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.List(r.Context(), limit, offset, q.Get("author"), q.Get("sort"))
	if err != nil {
		writeError(w, "list proposals", err)
		return
	}
	writeJSON(w, http.StatusOK, ProposalListResponse{Proposals: items, Total: total})
}

// GetProposal handles GET /api/proposals/*.
//
//	@Summary		Get a single proposal by id, file name or slug
//	@Tags			proposals
//	@Produce		json
//	@Param			selector	path		string	true	"Proposal selector"
//	@Success		200			{object}	ProposalDetail
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/proposals/{selector} [get]
func (h *Handler) GetProposal(w http.ResponseWriter, r *http.Request) {
	selector := selectorParam(r)
	if selector == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("selector is required"))
		return
	}
	d, err := h.svc.Get(r.Context(), selector)
	if err != nil {
		writeError(w, "get proposal", err, slog.String("selector", selector))
		return
	}
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	writeJSON(w, http.StatusOK, d)
}

// CreateProposal handles POST /api/proposals.
//
//	@Summary		Create a new proposal
//	@Tags			proposals
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateProposalRequest	true	"Proposal to create"
//	@Success		201		{object}	WriteResult
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/proposals [post]
func (h *Handler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, "create proposal", err, slog.String("title", req.Title))
		return
	}
	w.Header().Set("ETag", checksum.ETag(res.Checksum))
	writeJSON(w, http.StatusCreated, res)
}

// ReviseProposal handles PATCH /api/proposals/*.
//
//	@Summary		Merge metadata changes into a proposal
//	@Tags			proposals
//	@Accept			json
//	@Produce		json
//	@Param			selector	path		string					true	"Proposal selector"
//	@Param			If-Match	header		string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		ReviseProposalRequest	true	"Fields to merge"
//	@Success		200			{object}	WriteResult
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/proposals/{selector} [patch]
func (h *Handler) ReviseProposal(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	selector := selectorParam(r)
	if selector == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("selector is required"))
		return
	}
	var req models.EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	ifMatch := r.Header.Get("If-Match")

	res, err := h.svc.Revise(r.Context(), selector, req, ifMatch)
	if err != nil {
		writeError(w, "revise proposal", err, slog.String("selector", selector))
		return
	}
	w.Header().Set("ETag", checksum.ETag(res.Checksum))
	writeJSON(w, http.StatusOK, res)
}

// Resolve handles GET /api/resolve.
//
//	@Summary		Resolve an id or title reference to a proposal id
//	@Tags			references
//	@Produce		json
//	@Param			ref	query		string	true	"Id or title"
//	@Success		200	{object}	Resolution
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if strings.TrimSpace(ref) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'ref' is required"))
		return
	}
	res, err := h.svc.Resolve(r.Context(), ref)
	if err != nil {
		writeError(w, "resolve reference", err, slog.String("ref", ref))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CheckTitle handles GET /api/titles/check.
//
//	@Summary		Check whether a title is free for a new proposal
//	@Tags			references
//	@Produce		json
//	@Param			title	query		string	true	"Candidate title"
//	@Success		200		{object}	TitleCheckResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/titles/check [get]
func (h *Handler) CheckTitle(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if err := h.svc.CheckTitle(r.Context(), title); err != nil {
		writeError(w, "check title", err, slog.String("title", title))
		return
	}
	writeJSON(w, http.StatusOK, TitleCheckResponse{Available: true})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across proposals
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: nonNil(results)})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the proposal reference graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nonNil(nodes), Links: nonNil(links)})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
