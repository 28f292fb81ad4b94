// Package navigation remembers the last page a user visited per preview
// instance, so inspection mode can default to the page the user was
// actually looking at.
package navigation

import (
	"strings"
	"sync"
)

// DefaultPath is returned for instances with no recorded navigation.
const DefaultPath = "/"

// Tracker is a per-instance last-visited-path table. Entries are
// process-lifetime only and last-write-wins under concurrency; this is a
// best-effort convenience feature, not a correctness-critical one.
//
// Entries for destroyed instances are left in place and simply ignored by
// readers that no longer know the id.
type Tracker struct {
	mu    sync.RWMutex
	paths map[string]string
}

// New creates an empty tracker. Call Init before use.
func New() *Tracker {
	return &Tracker{}
}

// Init makes the tracker ready for use.
func (t *Tracker) Init() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paths == nil {
		t.paths = make(map[string]string)
	}
}

// Shutdown releases tracker state.
func (t *Tracker) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths = nil
}

// Record stores the last observed path for an instance. The path is
// normalized to start with "/" and has any query string stripped.
func (t *Tracker) Record(instanceID, path string) {
	if instanceID == "" {
		return
	}
	normalized := Normalize(path)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paths == nil {
		return
	}
	t.paths[instanceID] = normalized
}

// Get returns the last recorded path for an instance, or DefaultPath when
// none is known.
func (t *Tracker) Get(instanceID string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if p, ok := t.paths[instanceID]; ok {
		return p
	}
	return DefaultPath
}

// Clear removes the entry for an instance.
func (t *Tracker) Clear(instanceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.paths, instanceID)
}

// Normalize rewrites a raw request path into tracker form: query stripped,
// leading slash guaranteed, empty input mapped to DefaultPath.
func Normalize(path string) string {
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	if path == "" {
		return DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
