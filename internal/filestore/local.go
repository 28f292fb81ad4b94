package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore serves project files from a directory tree laid out as
// {root}/{projectID}/... . It is the development default; production
// deployments point the gateway at the platform's file service instead.
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: dir}
}

// Read implements Store.
func (s *LocalStore) Read(ctx context.Context, projectID, path string) ([]byte, error) {
	full, err := s.resolve(projectID, path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// List implements Store.
func (s *LocalStore) List(ctx context.Context, projectID, path string) ([]Entry, error) {
	full, err := s.resolve(projectID, path)
	if err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}
	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		e := Entry{Name: d.Name(), IsDir: d.IsDir()}
		if info, err := d.Info(); err == nil {
			e.Size = info.Size()
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// resolve maps a project-relative path onto the local tree, rejecting
// traversal outside the project root.
func (s *LocalStore) resolve(projectID, path string) (string, error) {
	if projectID == "" || strings.ContainsAny(projectID, `/\`) || projectID == ".." {
		return "", ErrNotFound
	}
	cleaned := filepath.Clean("/" + strings.TrimPrefix(path, "/"))
	projectRoot := filepath.Join(s.root, projectID)
	full := filepath.Join(projectRoot, cleaned)
	if full != projectRoot && !strings.HasPrefix(full, projectRoot+string(filepath.Separator)) {
		return "", ErrNotFound
	}
	return full, nil
}
