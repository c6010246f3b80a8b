// Package toolspec converts the ways a tool can be described in Go into the canonical
// convo.ToolDefinition sent to Anthropic.
//
// Supported shapes:
//   - Struct: a Go struct whose fields describe the arguments (tags json, jsonschema,
//     jsonschema_description; fields without omitempty are required).
//   - Function: a Go func plus a Google-style docstring.
//   - Tool: any value implementing Name, Description and ArgsSchema.
//   - JSONSchema or map[string]any with "title": a raw JSON Schema.
//   - convo.ToolDefinition or map[string]any with "input_schema": passed through.
//   - openai-go function definitions (shared.FunctionDefinitionParam,
//     openai.ChatCompletionToolUnionParam) or map[string]any with "name" and "parameters".
//
// Anything else returns a *convo.UnsupportedToolSpecError.
package toolspec
