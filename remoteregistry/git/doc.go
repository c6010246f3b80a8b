// Package git provides a remoteregistry.Fetcher that reads conversation manifests from a Git
// repository. The repository is cloned into memory on first use and pulled on later fetches.
package git
