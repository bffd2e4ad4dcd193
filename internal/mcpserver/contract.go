package mcpserver

// FormatContract describes the proposal document layout for agents that read
// or hand-edit proposal bodies. Metadata should be changed through the
// revise_proposal tool rather than by rewriting the block.
const FormatContract = `# Proposal Format Contract

Every proposal is one Markdown file named ` + "`NNNN-slug.md`" + ` in the corpus
directory, where ` + "`NNNN`" + ` is the zero-padded id (at least four digits) and
` + "`slug`" + ` is derived from the title. ` + "`0000-template.md`" + ` is the creation
template and never a proposal.

## Structure

` + "```" + `markdown
---
id: "0001"                          # REQUIRED, zero-padded, matches the file name
title: "Add parser support"         # REQUIRED, unique ignoring case and punctuation
authors: ["Roger"]
agents: ["codex"]
discussion: "https://..."           # OPTIONAL
tracking_issue: "https://..."       # OPTIONAL
prerequisite: []                    # ids of proposals this one depends on
supersedes: []                      # ids of proposals this one replaces
superseded_by: []                   # ids of proposals that replace this one
created: "2026-10-15T07:00:00Z"
last_updated: "2026-10-15T07:00:00Z"
history:
  - timestamp: "2026-10-15T07:00:00Z"
    change: "Initial draft"
---

# RFC 0001: Add parser support

Body text in standard Markdown.
` + "```" + `

## Rules

1. The metadata block opens on the first line with ` + "`---`" + ` and closes with
   the next line that is exactly ` + "`---`" + `.
2. ` + "`id`" + ` and ` + "`title`" + ` are required. Reference lists hold integer ids only;
   use the resolve_reference tool to turn a title into an id.
3. The first heading is ` + "`# <KIND> <id>: <title>`" + ` and is rewritten on every
   revision.
4. Timestamps are UTC, RFC 3339, second precision.
5. ` + "`history`" + ` is append-only; each revision adds one entry.
6. Keys you do not recognize must be preserved.
`
