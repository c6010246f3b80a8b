package adapter

import (
	"context"
	"errors"

	"github.com/skosovsky/convo"
	"github.com/skosovsky/convo/internal/cast"
)

// ProviderAdapter maps a canonical Conversation to a provider-specific request type
// and parses provider responses back into conversation turns.
type ProviderAdapter interface {
	// Translate converts the conversation into the provider request payload.
	// Callers must type-assert the result to the provider-specific type.
	Translate(ctx context.Context, conv *convo.Conversation) (any, error)
	// ParseResponse converts a raw unary provider response into an AI turn plus metadata.
	ParseResponse(ctx context.Context, raw any) (*Response, error)
	// ParseStreamChunk decodes one raw stream event into zero or one AI chunk.
	// Events that carry no content (pings, stops) yield an empty slice.
	// The chunks of a whole stream can be fed to convo.Aggregate.
	ParseStreamChunk(ctx context.Context, rawChunk any) ([]convo.Message, error)
}

// Sentinel errors for adapter implementations. Callers should use errors.Is.
var (
	ErrNilConversation  = errors.New("adapter: conversation must not be nil")
	ErrInvalidResponse  = errors.New("adapter: raw response has unexpected type")
	ErrEmptyResponse    = errors.New("adapter: response contains no content")
	ErrUnsupportedEvent = errors.New("adapter: unsupported stream event")
)

// Response is a parsed unary provider response.
type Response struct {
	Message  convo.Message
	Metadata ResponseMetadata
}

// ResponseMetadata is passed through from the provider unchanged.
type ResponseMetadata struct {
	ID           string
	Model        string
	StopReason   string
	StopSequence string
	Usage        Usage
}

// Usage reports token counts as returned by the provider.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// ModelParams holds well-known model config keys extracted from Conversation.ModelConfig.
// Use ExtractModelConfig to populate from map[string]any.
type ModelParams struct {
	Model       string
	Temperature *float64
	MaxTokens   *int64
	TopP        *float64
	TopK        *int64
	Stop        []string
}

// ExtractModelConfig reads well-known keys from ModelConfig and returns typed ModelParams.
// Well-known keys: "model" (string), "temperature" (float64), "max_tokens" (int64),
// "top_p" (float64), "top_k" (int64), "stop" ([]string). Values of the wrong type are ignored.
func ExtractModelConfig(cfg map[string]any) ModelParams {
	var out ModelParams
	if cfg == nil {
		return out
	}
	if v, ok := cfg["model"].(string); ok {
		out.Model = v
	}
	if v, ok := cfg["temperature"]; ok {
		if f, ok := cast.ToFloat64(v); ok {
			out.Temperature = &f
		}
	}
	if v, ok := cfg["max_tokens"]; ok {
		if i, ok := cast.ToInt64(v); ok {
			out.MaxTokens = &i
		}
	}
	if v, ok := cfg["top_p"]; ok {
		if f, ok := cast.ToFloat64(v); ok {
			out.TopP = &f
		}
	}
	if v, ok := cfg["top_k"]; ok {
		if i, ok := cast.ToInt64(v); ok {
			out.TopK = &i
		}
	}
	if v, ok := cfg["stop"]; ok {
		if ss, ok := cast.ToStringSlice(v); ok {
			out.Stop = ss
		} else if s, ok := v.(string); ok && s != "" {
			out.Stop = []string{s}
		}
	}
	return out
}
