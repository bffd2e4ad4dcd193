// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the proposal engine to agents via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/agx/internal/models"
	"github.com/starford/agx/internal/proposalservice"
)

// FormatURI is the resource URI of the proposal format contract.
const FormatURI = "agx://proposal-format"

// Server wraps the MCP server with proposal tools.
type Server struct {
	mcp *server.MCPServer
	svc *proposalservice.Service
}

func listOption(name, desc string) mcp.ToolOption {
	return mcp.WithArray(name, mcp.Description(desc), mcp.WithStringItems())
}

// New creates a new MCP server with all proposal tools registered.
func New(svc *proposalservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"agx",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("create_proposal",
		mcp.WithDescription("Create a new proposal. The next free id is allocated and the file is rendered "+
			"from the corpus template. Titles must not collide with existing titles ignoring case or "+
			"punctuation. References accept ids (\"12\") or titles."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Proposal title, single line, not all digits")),
		listOption("authors", "Author names; falls back to the configured default author"),
		listOption("agents", "Agent names that contributed"),
		mcp.WithString("discussion", mcp.Description("Discussion URL")),
		mcp.WithString("tracking_issue", mcp.Description("Tracking issue URL")),
		listOption("prerequisite", "Proposals this one depends on (ids or titles)"),
		listOption("supersedes", "Proposals this one replaces (ids or titles)"),
		listOption("superseded_by", "Proposals that replace this one (ids or titles)"),
	), s.createProposal)

	s.mcp.AddTool(mcp.NewTool("revise_proposal",
		mcp.WithDescription("Merge metadata changes into an existing proposal and append a history entry. "+
			"Authors and agents are appended without duplicates; reference lists that are given replace "+
			"the stored list."),
		mcp.WithString("selector", mcp.Required(), mcp.Description("Id, file name or slug of the proposal")),
		mcp.WithString("title", mcp.Description("New title; the heading is rewritten")),
		listOption("authors", "Authors to add"),
		listOption("agents", "Agents to add"),
		mcp.WithString("discussion", mcp.Description("Discussion URL")),
		mcp.WithString("tracking_issue", mcp.Description("Tracking issue URL")),
		listOption("prerequisite", "Replacement prerequisite list (ids or titles)"),
		listOption("supersedes", "Replacement supersedes list (ids or titles)"),
		listOption("superseded_by", "Replacement superseded_by list (ids or titles)"),
		mcp.WithString("if_match", mcp.Description("Checksum returned by get_proposal; the revision fails if the file changed since")),
	), s.reviseProposal)

	s.mcp.AddTool(mcp.NewTool("resolve_reference",
		mcp.WithDescription("Resolve an id or title to a proposal id using exact, case-insensitive and slug matching."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Id or title")),
	), s.resolveReference)

	s.mcp.AddTool(mcp.NewTool("check_title",
		mcp.WithDescription("Check whether a title is free for a new proposal."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Candidate title")),
	), s.checkTitle)

	s.mcp.AddTool(mcp.NewTool("get_proposal",
		mcp.WithDescription("Read a proposal: metadata, body, checksum and the proposals that reference it."),
		mcp.WithString("selector", mcp.Required(), mcp.Description("Id, file name or slug of the proposal")),
	), s.getProposal)

	s.mcp.AddTool(mcp.NewTool("list_proposals",
		mcp.WithDescription("List proposals ordered by id, title or last update."),
		mcp.WithString("author", mcp.Description("Only proposals by this author")),
		mcp.WithString("sort", mcp.Description("id, title or updated")),
	), s.listProposals)

	s.mcp.AddTool(mcp.NewTool("search_proposals",
		mcp.WithDescription("Full-text search through proposal titles, authors and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchProposals)

	s.mcp.AddTool(mcp.NewTool("get_proposal_contract",
		mcp.WithDescription("Returns the proposal document format contract. "+
			"Call this before editing proposal bodies by hand."),
	), s.getContract)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Proposal Format Contract",
			mcp.WithResourceDescription("Metadata block and heading layout every proposal follows."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// optionalString returns a pointer to the argument when it was supplied.
func optionalString(req mcp.CallToolRequest, key string) *string {
	if v, ok := req.GetArguments()[key].(string); ok {
		return &v
	}
	return nil
}

func (s *Server) createProposal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Create(ctx, proposalservice.CreateRequest{
		Title:         title,
		Authors:       req.GetStringSlice("authors", nil),
		Agents:        req.GetStringSlice("agents", nil),
		Discussion:    req.GetString("discussion", ""),
		TrackingIssue: req.GetString("tracking_issue", ""),
		Prerequisite:  req.GetStringSlice("prerequisite", nil),
		Supersedes:    req.GetStringSlice("supersedes", nil),
		SupersededBy:  req.GetStringSlice("superseded_by", nil),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) reviseProposal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	selector, err := req.RequireString("selector")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	edit := models.EditRequest{
		Title:         optionalString(req, "title"),
		Authors:       req.GetStringSlice("authors", nil),
		Agents:        req.GetStringSlice("agents", nil),
		Discussion:    optionalString(req, "discussion"),
		TrackingIssue: optionalString(req, "tracking_issue"),
		Prerequisite:  req.GetStringSlice("prerequisite", nil),
		Supersedes:    req.GetStringSlice("supersedes", nil),
		SupersededBy:  req.GetStringSlice("superseded_by", nil),
	}
	res, err := s.svc.Revise(ctx, selector, edit, req.GetString("if_match", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) resolveReference(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Resolve(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) checkTitle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.CheckTitle(ctx, title); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("available"), nil
}

func (s *Server) getProposal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	selector, err := req.RequireString("selector")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Get(ctx, selector)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d)
}

func (s *Server) listProposals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.List(ctx, 0, 0, req.GetString("author", ""), req.GetString("sort", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"proposals": items, "total": total})
}

func (s *Server) searchProposals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) getContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatContract), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     FormatContract,
		},
	}, nil
}
