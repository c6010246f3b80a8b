// Package adapter defines the ProviderAdapter interface for mapping convo's canonical
// Conversation to provider-specific request/response types. Implementations live in
// provider-specific subpackages.
package adapter
