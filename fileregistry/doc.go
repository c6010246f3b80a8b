// Package fileregistry provides a filesystem-backed convo.Registry that loads conversation
// manifests on demand and caches them. GetConversation resolves an id to {dir}/{id}.yaml,
// then {dir}/{id}.yml.
package fileregistry
