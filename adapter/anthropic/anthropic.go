package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/skosovsky/convo"
	"github.com/skosovsky/convo/adapter"
	"github.com/skosovsky/convo/internal/cast"
)

const defaultMaxTokens int64 = 1024

// Adapter implements adapter.ProviderAdapter for the Anthropic Messages API.
// Translate returns *anthropic.MessageNewParams; ParseResponse expects *anthropic.Message;
// ParseStreamChunk expects anthropic.MessageStreamEventUnion.
type Adapter struct {
	defaultModel anthropic.Model
	maxTokens    int64
	logger       *slog.Logger
}

// Option configures an Adapter (e.g. WithModel).
type Option func(*Adapter)

// WithModel sets the default model used when ModelConfig does not contain "model".
func WithModel(m anthropic.Model) Option {
	return func(a *Adapter) { a.defaultModel = m }
}

// WithMaxTokens sets the max_tokens used when ModelConfig does not contain "max_tokens".
// Non-positive values are ignored.
func WithMaxTokens(n int64) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// WithLogger sets the logger for debug output. Nil keeps the default, which discards.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// New returns an Adapter with a default model. Options can override the defaults.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		defaultModel: anthropic.ModelClaudeSonnet4_5_20250929,
		maxTokens:    defaultMaxTokens,
		logger:       discardLogger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Translate converts a Conversation into *anthropic.MessageNewParams.
func (a *Adapter) Translate(ctx context.Context, conv *convo.Conversation) (any, error) {
	if conv == nil {
		return nil, adapter.ErrNilConversation
	}
	return a.TranslateTyped(ctx, conv)
}

// TranslateTyped returns the concrete type so callers avoid type assertion.
func (a *Adapter) TranslateTyped(ctx context.Context, conv *convo.Conversation) (*anthropic.MessageNewParams, error) {
	if conv == nil {
		return nil, adapter.ErrNilConversation
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	formatted, err := format(conv.Messages, a.logger)
	if err != nil {
		return nil, err
	}
	params := &anthropic.MessageNewParams{
		MaxTokens: a.maxTokens,
		Model:     a.defaultModel,
	}
	a.applyModelConfig(params, conv.ModelConfig)
	if formatted.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: formatted.System}}
	}
	params.Messages = make([]anthropic.MessageParam, 0, len(formatted.Messages))
	for _, wm := range formatted.Messages {
		params.Messages = append(params.Messages, messageParam(wm))
	}
	if len(conv.Tools) > 0 {
		params.Tools = make([]anthropic.ToolUnionParam, 0, len(conv.Tools))
		for _, t := range conv.Tools {
			tool := anthropic.ToolUnionParamOfTool(toolSchemaFromDefinition(t.InputSchema), t.Name)
			if t.Description != "" {
				tool.OfTool.Description = anthropic.String(t.Description)
			}
			params.Tools = append(params.Tools, tool)
		}
	}
	a.logger.DebugContext(ctx, "translated conversation",
		slog.String("conversation_id", conv.ID),
		slog.String("model", string(params.Model)),
		slog.Int("messages", len(params.Messages)),
		slog.Int("tools", len(params.Tools)),
		slog.Bool("system", formatted.System != ""),
	)
	return params, nil
}

func (a *Adapter) applyModelConfig(params *anthropic.MessageNewParams, cfg map[string]any) {
	mp := adapter.ExtractModelConfig(cfg)
	if mp.Model != "" {
		params.Model = anthropic.Model(mp.Model)
	}
	if mp.MaxTokens != nil && *mp.MaxTokens > 0 {
		params.MaxTokens = *mp.MaxTokens
	}
	if mp.Temperature != nil {
		params.Temperature = anthropic.Float(*mp.Temperature)
	}
	if mp.TopP != nil {
		params.TopP = anthropic.Float(*mp.TopP)
	}
	if mp.TopK != nil {
		params.TopK = anthropic.Int(*mp.TopK)
	}
	if len(mp.Stop) > 0 {
		params.StopSequences = mp.Stop
	}
}

func messageParam(wm WireMessage) anthropic.MessageParam {
	blocks := wm.Content.AsBlocks()
	out := make([]anthropic.ContentBlockParamUnion, 0, len(blocks))
	for _, b := range blocks {
		switch x := b.(type) {
		case convo.TextBlock:
			out = append(out, anthropic.NewTextBlock(x.Text))
		case convo.ToolUseBlock:
			input := x.Input
			if input == nil {
				input = map[string]any{}
			}
			out = append(out, anthropic.NewToolUseBlock(x.ID, input, x.Name))
		case convo.ToolResultBlock:
			out = append(out, anthropic.NewToolResultBlock(x.ToolUseID, x.Content, x.IsError))
		}
	}
	if wm.Role == WireAssistant {
		return anthropic.NewAssistantMessage(out...)
	}
	return anthropic.NewUserMessage(out...)
}

// toolSchemaFromDefinition builds ToolInputSchemaParam from an input schema, preserving type,
// properties and required. Other top-level keys are carried as extra fields.
func toolSchemaFromDefinition(params map[string]any) anthropic.ToolInputSchemaParam {
	schema := anthropic.ToolInputSchemaParam{
		Type: constant.Object("object"),
	}
	if params == nil {
		return schema
	}
	if p, ok := params["properties"].(map[string]any); ok {
		schema.Properties = cast.CloneMap(p)
	}
	if r, ok := cast.ToStringSlice(params["required"]); ok {
		schema.Required = r
	}
	for k, v := range params {
		switch k {
		case "type", "properties", "required":
			continue
		}
		if schema.ExtraFields == nil {
			schema.ExtraFields = make(map[string]any)
		}
		schema.ExtraFields[k] = cast.CloneValue(v)
	}
	return schema
}

// ParseResponse converts *anthropic.Message into an AI turn plus response metadata.
func (a *Adapter) ParseResponse(ctx context.Context, raw any) (*adapter.Response, error) {
	switch msg := raw.(type) {
	case *anthropic.Message:
		if msg == nil {
			return nil, adapter.ErrInvalidResponse
		}
		return a.ParseMessage(ctx, msg)
	case anthropic.Message:
		return a.ParseMessage(ctx, &msg)
	default:
		return nil, fmt.Errorf("%w: %T", adapter.ErrInvalidResponse, raw)
	}
}

// ParseMessage is the typed form of ParseResponse.
//
// A response made of a single text block becomes string content; anything else is kept as
// blocks, with tool_use blocks also listed as ToolCalls. Block kinds the conversation model
// has no counterpart for (thinking, server tools) are skipped.
func (a *Adapter) ParseMessage(ctx context.Context, msg *anthropic.Message) (*adapter.Response, error) {
	blocks := make([]convo.Block, 0, len(msg.Content))
	var calls []convo.ToolCall
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			blocks = append(blocks, convo.TextBlock{Text: block.Text})
		case "tool_use":
			input, err := decodeInput(block.Input)
			if err != nil {
				return nil, fmt.Errorf("tool_use %s: %w", block.ID, err)
			}
			blocks = append(blocks, convo.ToolUseBlock{ID: block.ID, Name: block.Name, Input: input})
			calls = append(calls, convo.ToolCall{ID: block.ID, Name: block.Name, Args: cast.CloneMap(input)})
		default:
			a.logger.DebugContext(ctx, "skipping response block", slog.String("type", block.Type))
		}
	}
	if len(blocks) == 0 {
		return nil, adapter.ErrEmptyResponse
	}
	out := convo.Message{Role: convo.RoleAI, ToolCalls: calls}
	if t, ok := blocks[0].(convo.TextBlock); ok && len(blocks) == 1 {
		out.Content = convo.Text(t.Text)
	} else {
		out.Content = convo.Blocks(blocks...)
	}
	return &adapter.Response{
		Message: out,
		Metadata: adapter.ResponseMetadata{
			ID:           msg.ID,
			Model:        string(msg.Model),
			StopReason:   string(msg.StopReason),
			StopSequence: msg.StopSequence,
			Usage: adapter.Usage{
				InputTokens:  msg.Usage.InputTokens,
				OutputTokens: msg.Usage.OutputTokens,
			},
		},
	}, nil
}

func decodeInput(raw json.RawMessage) (map[string]any, error) {
	input := map[string]any{}
	if len(raw) == 0 {
		return input, nil
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("%w: %w", convo.ErrMalformedArgs, err)
	}
	if input == nil {
		input = map[string]any{}
	}
	return input, nil
}

// ParseStreamChunk converts one anthropic.MessageStreamEventUnion into at most one AI chunk.
func (a *Adapter) ParseStreamChunk(ctx context.Context, rawChunk any) ([]convo.Message, error) {
	switch ev := rawChunk.(type) {
	case anthropic.MessageStreamEventUnion:
		return a.ParseEvent(ctx, ev)
	case *anthropic.MessageStreamEventUnion:
		if ev == nil {
			return nil, adapter.ErrInvalidResponse
		}
		return a.ParseEvent(ctx, *ev)
	default:
		return nil, fmt.Errorf("%w: %T", adapter.ErrInvalidResponse, rawChunk)
	}
}

// ParseEvent is the typed form of ParseStreamChunk.
//
// Text deltas become text chunks. A tool_use block start becomes a fragment carrying the
// call's ID and Name, and each input_json_delta a fragment carrying a piece of its arguments;
// fragments are keyed by the content block index. Lifecycle events yield nothing.
func (a *Adapter) ParseEvent(ctx context.Context, ev anthropic.MessageStreamEventUnion) ([]convo.Message, error) {
	switch ev.Type {
	case "content_block_start":
		switch ev.ContentBlock.Type {
		case "tool_use":
			return []convo.Message{convo.NewAIChunk("", convo.ToolCallChunk{
				Index: int(ev.Index),
				ID:    ev.ContentBlock.ID,
				Name:  ev.ContentBlock.Name,
			})}, nil
		case "text":
			if ev.ContentBlock.Text != "" {
				return []convo.Message{convo.NewAIChunk(ev.ContentBlock.Text)}, nil
			}
		}
		return []convo.Message{}, nil
	case "content_block_delta":
		switch ev.Delta.Type {
		case "text_delta":
			return []convo.Message{convo.NewAIChunk(ev.Delta.Text)}, nil
		case "input_json_delta":
			return []convo.Message{convo.NewAIChunk("", convo.ToolCallChunk{
				Index: int(ev.Index),
				Args:  ev.Delta.PartialJSON,
			})}, nil
		}
		a.logger.DebugContext(ctx, "skipping stream delta", slog.String("type", ev.Delta.Type))
		return []convo.Message{}, nil
	case "message_start", "message_delta", "message_stop", "content_block_stop", "ping":
		return []convo.Message{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", adapter.ErrUnsupportedEvent, ev.Type)
	}
}

var _ adapter.ProviderAdapter = (*Adapter)(nil)
