// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/daymark/internal/models"

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns every Markdown document under dir (relative to vault root).
	List(dir string) ([]models.Document, error)
	// Stat returns the document at path (relative to vault root).
	Stat(path string) (models.Document, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to vault root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to vault root).
	Move(oldPath, newPath string) error
	// Ignored reports whether a relative path is excluded from indexing.
	Ignored(path string) bool
}
