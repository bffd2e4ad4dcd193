package api

import (
	"github.com/starford/agx/internal/index"
	"github.com/starford/agx/internal/models"
	"github.com/starford/agx/internal/proposalservice"
)

// CreateProposalRequest is the request body for creating a proposal.
type CreateProposalRequest = proposalservice.CreateRequest

// ReviseProposalRequest is the request body for revising a proposal. Absent
// fields are left untouched.
type ReviseProposalRequest = models.EditRequest

// ProposalDetail is the full proposal response type (aliased from the domain layer).
type ProposalDetail = proposalservice.Detail

// ProposalListItem is a lightweight item in a list response (aliased from the domain layer).
type ProposalListItem = proposalservice.ListItem

// WriteResult is returned by create and revise.
type WriteResult = proposalservice.Result

// Resolution is returned by the resolve endpoint.
type Resolution = proposalservice.Resolution

// ProposalListResponse wraps paginated proposal listings.
type ProposalListResponse struct {
	Proposals []ProposalListItem `json:"proposals" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// TitleCheckResponse reports a free title.
type TitleCheckResponse struct {
	Available bool `json:"available" example:"true"`
}

// SearchResponse wraps search hits.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// GraphResponse is the reference graph.
type GraphResponse struct {
	Nodes []index.GraphNode `json:"nodes" validate:"required"`
	Links []models.Link     `json:"links" validate:"required"`
}
