package remoteregistry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/skosovsky/convo"
	"github.com/skosovsky/convo/manifest"
)

const defaultTTL = 5 * time.Minute

var _ convo.Registry = (*Registry)(nil)

type cacheEntry struct {
	conv      *convo.Conversation
	expiresAt time.Time
}

// Registry loads conversations via a Fetcher and caches them with a TTL.
type Registry struct {
	fetcher Fetcher
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.RWMutex
	cache map[string]*cacheEntry
	sf    singleflight.Group
}

// New creates a Registry over fetcher. Panics if fetcher is nil.
func New(fetcher Fetcher, opts ...Option) *Registry {
	if fetcher == nil {
		panic("remoteregistry: Fetcher must not be nil")
	}
	r := &Registry{
		fetcher: fetcher,
		ttl:     defaultTTL,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
		cache:   make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) valid(ent *cacheEntry) bool {
	return r.ttl <= 0 || r.now().Before(ent.expiresAt)
}

// GetConversation returns a copy of the conversation with the given id, fetching it on a
// cache miss or after expiry. The manifest's own id must equal the requested one.
func (r *Registry) GetConversation(ctx context.Context, id string) (*convo.Conversation, error) {
	if err := convo.ValidateID(id); err != nil {
		return nil, err
	}
	r.mu.RLock()
	ent, ok := r.cache[id]
	r.mu.RUnlock()
	if ok && r.valid(ent) {
		return ent.conv.Clone(), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err, shared := r.sf.Do(id, func() (any, error) {
		return r.load(ctx, id)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %q: %w", convo.ErrNotFound, id, err)
		}
		return nil, err
	}
	r.logger.DebugContext(ctx, "conversation loaded", slog.String("id", id), slog.Bool("shared", shared))
	return v.(*convo.Conversation).Clone(), nil
}

// load fetches, parses and caches one conversation. The fetch is detached from the caller's
// cancellation because other callers may be waiting on it; the deadline still applies.
func (r *Registry) load(ctx context.Context, id string) (*convo.Conversation, error) {
	fetchCtx := context.WithoutCancel(ctx)
	if dl, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithDeadline(fetchCtx, dl)
		defer cancel()
	}
	data, err := r.fetcher.Fetch(fetchCtx, id)
	if err != nil {
		r.logger.WarnContext(ctx, "conversation fetch failed", slog.String("id", id), slog.Any("error", err))
		return nil, err
	}
	conv, err := manifest.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	if conv.ID != id {
		return nil, fmt.Errorf("%w: fetched %q declares id %q", convo.ErrInvalidManifest, id, conv.ID)
	}
	var expiresAt time.Time
	if r.ttl > 0 {
		expiresAt = r.now().Add(r.ttl)
	}
	r.mu.Lock()
	r.cache[id] = &cacheEntry{conv: conv, expiresAt: expiresAt}
	r.mu.Unlock()
	return conv, nil
}

// List returns ids from the Fetcher if it implements Lister; otherwise nil.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if lister, ok := r.fetcher.(Lister); ok {
		return lister.ListIDs(ctx)
	}
	return nil, nil
}

// Evict removes one conversation from the cache.
func (r *Registry) Evict(id string) {
	r.mu.Lock()
	delete(r.cache, id)
	r.mu.Unlock()
}

// EvictAll clears the cache.
func (r *Registry) EvictAll() {
	r.mu.Lock()
	r.cache = make(map[string]*cacheEntry)
	r.mu.Unlock()
}

// Close closes the Fetcher if it implements io.Closer.
func (r *Registry) Close() error {
	if c, ok := r.fetcher.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
