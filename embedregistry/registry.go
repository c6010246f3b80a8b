package embedregistry

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/skosovsky/convo"
	"github.com/skosovsky/convo/manifest"
)

var _ convo.Registry = (*Registry)(nil)

// Registry holds conversations parsed eagerly from an fs.FS. It is read-only after New,
// so no locking is needed.
type Registry struct {
	cache map[string]*convo.Conversation
}

// New walks fsys below root and parses every .yaml/.yml file. Two manifests declaring the same
// id are an error.
func New(fsys fs.FS, root string) (*Registry, error) {
	r := &Registry{cache: make(map[string]*convo.Conversation)}
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := path.Ext(p); ext != ".yaml" && ext != ".yml" {
			return nil
		}
		conv, err := manifest.ParseFS(fsys, p)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		if err := convo.ValidateID(conv.ID); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		if _, dup := r.cache[conv.ID]; dup {
			return fmt.Errorf("%s: %w: duplicate id %q", p, convo.ErrInvalidManifest, conv.ID)
		}
		r.cache[conv.ID] = conv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetConversation returns a copy of the conversation with the given id.
func (r *Registry) GetConversation(ctx context.Context, id string) (*convo.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if conv, ok := r.cache[id]; ok {
		return conv.Clone(), nil
	}
	return nil, fmt.Errorf("%w: %q", convo.ErrNotFound, id)
}

// IDs returns the ids of all loaded conversations in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.cache))
	for id := range r.cache {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, strings.Compare)
	return ids
}
