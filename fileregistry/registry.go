package fileregistry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/skosovsky/convo"
	"github.com/skosovsky/convo/manifest"
)

var _ convo.Registry = (*Registry)(nil)

// Registry loads conversation manifests from a directory (lazy, cached).
type Registry struct {
	dir   string
	mu    sync.RWMutex
	cache map[string]*convo.Conversation
}

// New creates a Registry that reads YAML manifests from dir.
func New(dir string) *Registry {
	return &Registry{
		dir:   dir,
		cache: make(map[string]*convo.Conversation),
	}
}

// GetConversation returns a copy of the conversation declared in {dir}/{id}.yaml or .yml.
// The manifest's own id must equal the requested one.
func (r *Registry) GetConversation(ctx context.Context, id string) (*convo.Conversation, error) {
	if err := convo.ValidateID(id); err != nil {
		return nil, err
	}
	r.mu.RLock()
	conv, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return conv.Clone(), nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv, ok = r.cache[id]; ok {
		return conv.Clone(), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(r.dir, id+ext)
		conv, err := manifest.ParseFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if conv.ID != id {
			return nil, fmt.Errorf("%w: %s declares id %q", convo.ErrInvalidManifest, path, conv.ID)
		}
		r.cache[id] = conv
		return conv.Clone(), nil
	}
	return nil, fmt.Errorf("%w: %q", convo.ErrNotFound, id)
}

// Reload clears the cache so the next lookup rereads the files.
func (r *Registry) Reload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*convo.Conversation)
}
