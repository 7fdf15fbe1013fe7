// Package registry keeps the client's local view of the backend's document
// list: the last successful fetch, replaced wholesale on refresh and left
// untouched when a fetch fails.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lbourdet/veridoc/internal/document"
)

// ErrUnavailable marks a failed registry fetch. The cached list survives
// the failure so the operator keeps a (stale) view and can retry.
var ErrUnavailable = errors.New("registry unavailable")

// Lister is the backend call the registry depends on.
type Lister interface {
	ListDocuments(ctx context.Context) ([]document.Document, error)
}

// Registry caches the last good document list.
type Registry struct {
	lister Lister

	mu      sync.RWMutex
	docs    []document.Document
	fetched bool
}

// New builds an empty registry; call Refresh to populate it.
func New(lister Lister) *Registry {
	return &Registry{lister: lister}
}

// Refresh re-fetches the document list and fully replaces the cache.
// Idempotent with respect to local state; on failure the previous cache is
// kept and the error wraps ErrUnavailable.
func (r *Registry) Refresh(ctx context.Context) error {
	docs, err := r.lister.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	r.mu.Lock()
	r.docs = docs
	r.fetched = true
	r.mu.Unlock()
	return nil
}

// Documents returns a copy of the cached list, in backend order.
func (r *Registry) Documents() []document.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]document.Document, len(r.docs))
	copy(out, r.docs)
	return out
}

// Find looks a document up by id in the cache.
func (r *Registry) Find(id int) (document.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.docs {
		if d.ID == id {
			return d, true
		}
	}
	return document.Document{}, false
}

// Fetched reports whether at least one refresh has succeeded, so the UI
// can distinguish "empty registry" from "never loaded".
func (r *Registry) Fetched() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fetched
}
