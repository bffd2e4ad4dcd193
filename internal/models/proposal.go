// Package models defines the domain types for agx.
package models

import (
	"time"

	"github.com/starford/agx/internal/ident"
)

// Change descriptions recorded in history.
const (
	ChangeInitialDraft = "Initial draft"
	ChangeRevised      = "Revised"
)

// Metadata keys of a proposal document.
const (
	KeyID            = "id"
	KeyTitle         = "title"
	KeyAuthors       = "authors"
	KeyAgents        = "agents"
	KeyDiscussion    = "discussion"
	KeyTrackingIssue = "tracking_issue"
	KeyPrerequisite  = "prerequisite"
	KeySupersedes    = "supersedes"
	KeySupersededBy  = "superseded_by"
	KeyCreated       = "created"
	KeyLastUpdated   = "last_updated"
	KeyHistory       = "history"
)

// HistoryEntry records one create or revise event.
type HistoryEntry struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Change    string `json:"change" yaml:"change"`
}

// Proposal is a decoded proposal document.
type Proposal struct {
	ID            ident.ID       `json:"id" yaml:"id"`
	Title         string         `json:"title" yaml:"title"`
	Authors       []string       `json:"authors" yaml:"authors"`
	Agents        []string       `json:"agents" yaml:"agents"`
	Discussion    string         `json:"discussion,omitempty" yaml:"discussion"`
	TrackingIssue string         `json:"tracking_issue,omitempty" yaml:"tracking_issue"`
	Prerequisite  []ident.ID     `json:"prerequisite" yaml:"prerequisite"`
	Supersedes    []ident.ID     `json:"supersedes" yaml:"supersedes"`
	SupersededBy  []ident.ID     `json:"superseded_by" yaml:"superseded_by"`
	Created       string         `json:"created,omitempty" yaml:"created"`
	LastUpdated   string         `json:"last_updated,omitempty" yaml:"last_updated"`
	History       []HistoryEntry `json:"history" yaml:"history"`

	Path     string `json:"path" yaml:"-"`
	Checksum string `json:"checksum,omitempty" yaml:"-"`
	Body     string `json:"body,omitempty" yaml:"-"`
}

// FileMeta is a lightweight representation returned by list operations.
type FileMeta struct {
	Path      string    `json:"path"`
	ID        ident.ID  `json:"id"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EditRequest carries the optional changes of a create or revise call.
// Reference lists hold raw references: all-digit strings are identifiers,
// anything else is a title to resolve.
type EditRequest struct {
	Title         *string  `json:"title,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	Agents        []string `json:"agents,omitempty"`
	Discussion    *string  `json:"discussion,omitempty"`
	TrackingIssue *string  `json:"tracking_issue,omitempty"`
	Prerequisite  []string `json:"prerequisite,omitempty"`
	Supersedes    []string `json:"supersedes,omitempty"`
	SupersededBy  []string `json:"superseded_by,omitempty"`
}

// Link is a directed reference between two proposals.
type Link struct {
	Source ident.ID `json:"source"`
	Target ident.ID `json:"target"`
	Type   string   `json:"type"` // one of the reference list keys
}
