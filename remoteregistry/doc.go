// Package remoteregistry provides a convo.Registry that loads conversation manifests through a
// Fetcher (HTTPFetcher is included) and caches the parsed conversations with a TTL.
// Concurrent misses for one id share a single fetch.
package remoteregistry
