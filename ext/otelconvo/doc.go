// Package otelconvo wraps an adapter.ProviderAdapter with OpenTelemetry tracing.
//
// Every Translate, ParseResponse and ParseStreamChunk call runs in its own span. Failures are
// recorded on the span and returned unchanged.
package otelconvo
