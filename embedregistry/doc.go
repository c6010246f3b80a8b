// Package embedregistry provides an fs.FS-backed convo.Registry (typically over embed.FS) that
// parses every conversation manifest at construction. Lookups are keyed by the manifest id.
package embedregistry
