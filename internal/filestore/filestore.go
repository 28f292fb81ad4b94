// Package filestore defines the project file store consumed by the proxy
// gateway for live-edit overrides and fallback listings.
package filestore

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested file does not exist in the store.
var ErrNotFound = errors.New("file not found")

// Entry describes one item in a directory listing.
type Entry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// Store is the external project file store. Implementations must treat
// paths as project-relative and slash-separated.
type Store interface {
	// Read returns the contents of a project file, or ErrNotFound.
	Read(ctx context.Context, projectID, path string) ([]byte, error)
	// List returns the entries of a project directory, or ErrNotFound.
	List(ctx context.Context, projectID, path string) ([]Entry, error)
}
