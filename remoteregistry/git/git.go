package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/skosovsky/convo"
	"github.com/skosovsky/convo/remoteregistry"
)

var (
	_ remoteregistry.Fetcher = (*Fetcher)(nil)
	_ remoteregistry.Lister  = (*Fetcher)(nil)
)

// Fetcher reads {dir}/{id}.yaml (or .yml) from the worktree of an in-memory clone.
type Fetcher struct {
	repoURL   string
	branch    string
	dir       string
	depth     int
	authToken string
	logger    *slog.Logger

	mu   sync.Mutex
	repo *git.Repository
}

// NewFetcher creates a Fetcher for repoURL. Nothing is cloned until the first Fetch.
func NewFetcher(repoURL string, opts ...Option) (*Fetcher, error) {
	if strings.TrimSpace(repoURL) == "" {
		return nil, errors.New("remoteregistry/git: repo URL must not be empty")
	}
	g := &Fetcher{
		repoURL: repoURL,
		branch:  "main",
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	if strings.TrimSpace(g.branch) == "" {
		return nil, errors.New("remoteregistry/git: branch must not be empty")
	}
	if g.dir != "" && (path.IsAbs(g.dir) || strings.HasPrefix(path.Clean(g.dir), "..")) {
		return nil, fmt.Errorf("remoteregistry/git: dir %q must stay inside the repository", g.dir)
	}
	return g, nil
}

// Fetch implements remoteregistry.Fetcher.
func (g *Fetcher) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := convo.ValidateID(id); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	wt, err := g.sync(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", remoteregistry.ErrFetchFailed, err)
	}
	for _, name := range remoteregistry.CandidatePaths(id) {
		p := path.Join(g.root(), name)
		data, err := util.ReadFile(wt.Filesystem, p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", remoteregistry.ErrFetchFailed, p, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %q", remoteregistry.ErrNotFound, id)
}

// ListIDs implements remoteregistry.Lister: the names of manifest files in the directory.
func (g *Fetcher) ListIDs(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	wt, err := g.sync(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", remoteregistry.ErrFetchFailed, err)
	}
	entries, err := wt.Filesystem.ReadDir(g.root())
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", remoteregistry.ErrFetchFailed, g.root(), err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		id := strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
		if id == name || convo.ValidateID(id) != nil {
			continue
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Close drops the in-memory clone; the next Fetch clones again.
func (g *Fetcher) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.repo = nil
	return nil
}

func (g *Fetcher) root() string {
	if g.dir == "" {
		return "."
	}
	return path.Clean(g.dir)
}

func (g *Fetcher) auth() transport.AuthMethod {
	if g.authToken == "" {
		return nil
	}
	return &http.BasicAuth{Username: "x-access-token", Password: g.authToken}
}

// sync clones on first use and pulls afterwards. A failed pull keeps serving the last
// checked-out tree.
func (g *Fetcher) sync(ctx context.Context) (*git.Worktree, error) {
	if g.repo == nil {
		repo, err := git.CloneContext(ctx, memory.NewStorage(), memfs.New(), &git.CloneOptions{
			URL:           g.repoURL,
			ReferenceName: plumbing.NewBranchReferenceName(g.branch),
			SingleBranch:  true,
			Depth:         g.depth,
			Auth:          g.auth(),
		})
		if err != nil {
			return nil, fmt.Errorf("clone %s: %w", g.repoURL, err)
		}
		g.repo = repo
		return repo.Worktree()
	}
	wt, err := g.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("worktree: %w", err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{
		ReferenceName: plumbing.NewBranchReferenceName(g.branch),
		SingleBranch:  true,
		Depth:         g.depth,
		Auth:          g.auth(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		g.logger.WarnContext(ctx, "git pull failed, serving cached tree",
			slog.String("repo", g.repoURL), slog.Any("error", err))
	}
	return wt, nil
}
