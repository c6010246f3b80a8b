package remoteregistry

import "errors"

// Sentinel errors for remote registry operations.
var (
	// ErrFetchFailed indicates the Fetcher could not retrieve the manifest.
	ErrFetchFailed = errors.New("remoteregistry: fetch failed")
	// ErrHTTPStatus indicates an unexpected HTTP status from HTTPFetcher.
	ErrHTTPStatus = errors.New("remoteregistry: unexpected HTTP status")
	// ErrNotFound is returned by fetchers for unknown ids; Registry rewraps it as convo.ErrNotFound.
	ErrNotFound = errors.New("remoteregistry: no manifest found")
)
