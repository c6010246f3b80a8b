package remoteregistry

import (
	"log/slog"
	"time"
)

// Option configures a Registry.
type Option func(*Registry)

// WithTTL sets how long a fetched conversation is served from cache. Default is 5 minutes.
// TTL <= 0 means entries never expire.
func WithTTL(d time.Duration) Option {
	return func(r *Registry) {
		r.ttl = d
	}
}

// WithLogger sets the logger used for fetch diagnostics. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}
