// Package anthropic translates convo conversations to and from the Anthropic Messages API.
//
// Format produces the provider-ready shape (system prompt plus strictly alternating
// user/assistant messages) and marshals to the API's JSON. Adapter builds on it:
// Translate returns *anthropic.MessageNewParams, ParseResponse expects *anthropic.Message and
// ParseStreamChunk expects anthropic.MessageStreamEventUnion. Use TranslateTyped, ParseMessage
// and ParseEvent to avoid type assertions.
//
// Tool schema: "type", "properties" and "required" of ToolDefinition.InputSchema map to the
// SDK input schema; any other top-level keys are sent as extra fields.
package anthropic
