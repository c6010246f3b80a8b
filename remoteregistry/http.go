package remoteregistry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/skosovsky/convo"
)

var _ Fetcher = (*HTTPFetcher)(nil)

// maxBodySize caps a manifest response at 1 MiB.
const maxBodySize = 1 << 20

const defaultUserAgent = "convo-remote-registry/1.0"

var errNotFound = errors.New("not found")

// HTTPFetcher fetches manifests from {baseURL}/{id}.yaml, falling back to {baseURL}/{id}.yml.
// A 404 moves on to the next candidate; any other non-2xx status is ErrHTTPStatus.
type HTTPFetcher struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient sets the HTTP client. Nil keeps the default (30s timeout).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPFetcher) {
		if c != nil {
			h.httpClient = c
		}
	}
}

// WithAuthToken sends token as a Bearer Authorization header.
func WithAuthToken(token string) HTTPOption {
	return func(h *HTTPFetcher) {
		h.authToken = token
	}
}

// NewHTTPFetcher creates an HTTPFetcher. baseURL must be absolute, e.g. https://example.com/conversations.
func NewHTTPFetcher(baseURL string, opts ...HTTPOption) (*HTTPFetcher, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" {
		return nil, errors.New("remoteregistry: base URL must not be empty")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("remoteregistry: invalid base URL %q", baseURL)
	}
	h := &HTTPFetcher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Fetch implements Fetcher.
func (h *HTTPFetcher) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := convo.ValidateID(id); err != nil {
		return nil, err
	}
	for _, name := range CandidatePaths(id) {
		data, err := h.fetchOne(ctx, name)
		if errors.Is(err, errNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
}

func (h *HTTPFetcher) fetchOne(ctx context.Context, name string) ([]byte, error) {
	u := h.baseURL + "/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/yaml, text/yaml, */*")
	if h.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.authToken)
	}
	resp, err := h.httpClient.Do(req) // #nosec G107 -- base URL is configured, name is validated and escaped
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %w: %s %s", ErrFetchFailed, ErrHTTPStatus, resp.Status, u)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrFetchFailed, err)
	}
	if len(data) > maxBodySize {
		return nil, fmt.Errorf("%w: response body exceeds %d bytes", ErrFetchFailed, maxBodySize)
	}
	return data, nil
}
