package remoteregistry

import "context"

// Fetcher fetches raw YAML manifest bytes by conversation id.
// Return ErrNotFound for unknown ids and wrap other failures in ErrFetchFailed.
type Fetcher interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// Lister is optionally implemented by a Fetcher to enumerate available ids.
type Lister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// CandidatePaths returns manifest file names in resolution order.
// Validate id with convo.ValidateID first.
func CandidatePaths(id string) []string {
	return []string{id + ".yaml", id + ".yml"}
}
