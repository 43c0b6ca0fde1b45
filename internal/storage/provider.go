// Package storage defines the data-directory file-system abstraction.
package storage

import (
	"io"

	"github.com/starford/focusfive/internal/models"
)

// Provider is the interface for data-directory file operations. All paths
// are relative to the data root and use forward slashes.
type Provider interface {
	// List returns metadata for every file with extension ext under dir.
	List(dir, ext string) ([]models.FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Open opens the file at path for random-access reading.
	Open(path string) (io.ReadSeekCloser, error)
	// Write atomically replaces the content of path.
	Write(path string, content []byte) error
	// Append atomically rewrites path with data added to its end.
	Append(path string, data []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// SweepTemp removes temporary files left behind by interrupted writes.
	SweepTemp() (int, error)
}
