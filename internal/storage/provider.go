// Package storage defines the proposal corpus file-system abstraction.
package storage

import "github.com/starford/agx/internal/models"

// Provider is the interface for corpus file operations. Paths are relative to
// the corpus directory.
type Provider interface {
	// Root returns the absolute corpus directory.
	Root() string
	// List returns metadata for every recognized proposal file, ordered by id.
	List() ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
	// Create writes content to a new file and fails with
	// apperr.ErrAlreadyExists if path is taken.
	Create(path string, content []byte) error
}
