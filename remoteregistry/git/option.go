package git

import "log/slog"

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithBranch sets the branch to clone. Default is "main".
func WithBranch(branch string) Option {
	return func(g *Fetcher) {
		g.branch = branch
	}
}

// WithDir sets the repository subdirectory holding the manifests. Default is the root.
func WithDir(dir string) Option {
	return func(g *Fetcher) {
		g.dir = dir
	}
}

// WithDepth sets a shallow clone depth. Default 0 clones the full history.
func WithDepth(depth int) Option {
	return func(g *Fetcher) {
		g.depth = depth
	}
}

// WithAuth sets an HTTPS access token, sent as basic auth with user "x-access-token".
func WithAuth(token string) Option {
	return func(g *Fetcher) {
		g.authToken = token
	}
}

// WithLogger sets the logger used to report failed pulls. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(g *Fetcher) {
		if l != nil {
			g.logger = l
		}
	}
}
