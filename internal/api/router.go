package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/agx/internal/proposalservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *proposalservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/proposals", h.ListProposals)
	r.Post("/proposals", h.CreateProposal)
	r.Get("/proposals/*", h.GetProposal)
	r.Patch("/proposals/*", h.ReviseProposal)

	r.Get("/resolve", h.Resolve)
	r.Get("/titles/check", h.CheckTitle)

	r.Get("/search", h.Search)
	r.Get("/graph", h.Graph)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
