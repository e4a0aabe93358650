// Package memory keeps archived documents in-memory for development.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Archive stores raw documents in a map and returns pseudo URIs.
type Archive struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty in-memory archive.
func New() *Archive {
	return &Archive{data: make(map[string][]byte)}
}

// PutObject persists the content and returns a memory:// URI.
func (a *Archive) PutObject(_ context.Context, path string, _ string, data []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.data[path] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", path), nil
}

// GetObject returns a stored document, or false when the path is unknown.
func (a *Archive) GetObject(path string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	data, ok := a.data[path]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}
