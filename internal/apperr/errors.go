// Package apperr defines the error taxonomy shared by the proposal engine and
// its transports.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("conflict")

	ErrMalformedDocument    = errors.New("malformed document")
	ErrInvalidMetadata      = errors.New("invalid metadata")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrReferenceNotFound    = errors.New("reference not found")
	ErrAmbiguousReference   = errors.New("ambiguous reference")
	ErrDuplicateTitle       = errors.New("duplicate title")
	ErrCorpusUnavailable    = errors.New("corpus unavailable")
)

// Match is one proposal named in a resolution or conflict diagnosis.
type Match struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (m Match) String() string {
	return fmt.Sprintf("%s (%s)", m.ID, m.Title)
}

// FormatMatches renders matches as "0001 (Title), 0002 (Other)".
func FormatMatches(matches []Match) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.String()
	}
	return strings.Join(parts, ", ")
}

// FieldError reports a metadata field that is missing or has the wrong shape.
// Err is ErrMissingRequiredField or ErrInvalidMetadata.
type FieldError struct {
	Field  string
	Reason string
	Err    error
}

func (e *FieldError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: `%s`", e.Err, e.Field)
	}
	return fmt.Sprintf("%s: `%s` %s", e.Err, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return e.Err }

// MissingField returns a FieldError wrapping ErrMissingRequiredField.
func MissingField(field string) error {
	return &FieldError{Field: field, Err: ErrMissingRequiredField}
}

// InvalidField returns a FieldError wrapping ErrInvalidMetadata.
func InvalidField(field, reason string) error {
	return &FieldError{Field: field, Reason: reason, Err: ErrInvalidMetadata}
}

// AmbiguousReferenceError is returned when a title reference matches more
// than one proposal within a single resolution tier.
type AmbiguousReferenceError struct {
	Input   string
	Tier    string
	Matches []Match
}

func (e *AmbiguousReferenceError) Error() string {
	return fmt.Sprintf("title reference `%s` matched multiple proposals by %s: %s",
		e.Input, e.Tier, FormatMatches(e.Matches))
}

func (e *AmbiguousReferenceError) Unwrap() error { return ErrAmbiguousReference }

// ReferenceNotFoundError is returned when no tier matched a title reference.
type ReferenceNotFoundError struct {
	Input string
	Dir   string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("unable to resolve title reference `%s` in %s", e.Input, e.Dir)
}

func (e *ReferenceNotFoundError) Unwrap() error { return ErrReferenceNotFound }

// DuplicateTitleError is returned at creation time when the candidate title
// collides with existing proposals by case-folded title or slug.
type DuplicateTitleError struct {
	Title     string
	Dir       string
	Conflicts []Match
}

func (e *DuplicateTitleError) Error() string {
	if len(e.Conflicts) == 1 {
		c := e.Conflicts[0]
		return fmt.Sprintf("title `%s` already exists in %s as %s (%s)", e.Title, e.Dir, c.ID, c.Title)
	}
	return fmt.Sprintf("title `%s` conflicts with multiple existing proposals in %s: %s",
		e.Title, e.Dir, FormatMatches(e.Conflicts))
}

func (e *DuplicateTitleError) Unwrap() error { return ErrDuplicateTitle }
