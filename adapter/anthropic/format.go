package anthropic

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/skosovsky/convo"
)

// WireRole is a role of the Messages API.
type WireRole string

// Wire roles. The API has no system or tool role.
const (
	WireUser      WireRole = "user"
	WireAssistant WireRole = "assistant"
)

// WireMessage is one entry of the Messages API "messages" array.
// Content keeps its variant: string content marshals as a JSON string, block content as an array.
type WireMessage struct {
	Role    WireRole
	Content convo.Content
}

// Formatted is the provider-ready shape of a conversation: an optional system prompt and
// strictly alternating user/assistant messages.
type Formatted struct {
	System   string        `json:"system,omitempty"`
	Messages []WireMessage `json:"messages"`
}

// Format converts generic turns into the Messages API shape.
//
// Turns are merged with convo.Merge first, so tool results end up as tool_result blocks of a
// user message and consecutive turns of one role are combined. A system turn is only allowed
// as the first merged turn; anywhere else, and for roles the API cannot express, Format
// returns a *convo.FormatError.
//
// AI turns with string content and tool calls become a leading text block (when the text is
// non-empty) followed by one tool_use block per call. AI turns with block content are sent as
// authored and their tool call list is not appended. Aggregated AI chunks are materialised
// first; malformed arguments return an error wrapping convo.ErrMalformedArgs.
func Format(msgs []convo.Message) (*Formatted, error) {
	return format(msgs, discardLogger)
}

var discardLogger = slog.New(slog.DiscardHandler)

func format(msgs []convo.Message, logger *slog.Logger) (*Formatted, error) {
	merged := convo.Merge(msgs)
	out := &Formatted{Messages: make([]WireMessage, 0, len(merged))}
	for i, m := range merged {
		switch m.Role {
		case convo.RoleSystem:
			if i != 0 {
				return nil, &convo.FormatError{Index: i, Role: m.Role, Reason: "system message must be first"}
			}
			system, err := systemText(i, m)
			if err != nil {
				return nil, err
			}
			out.System = system
		case convo.RoleHuman:
			out.Messages = append(out.Messages, WireMessage{Role: WireUser, Content: m.Content})
		case convo.RoleAI:
			content, err := assistantContent(i, m, logger)
			if err != nil {
				return nil, err
			}
			out.Messages = append(out.Messages, WireMessage{Role: WireAssistant, Content: content})
		default:
			return nil, &convo.FormatError{Index: i, Role: m.Role, Reason: "unsupported role"}
		}
	}
	return out, nil
}

// systemText flattens system content to a string. Text blocks are joined with "\n",
// the same separator Merge uses for string turns.
func systemText(i int, m convo.Message) (string, error) {
	if !m.Content.IsBlocks() {
		return m.Content.String(), nil
	}
	blocks := m.Content.BlockList()
	texts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		t, ok := b.(convo.TextBlock)
		if !ok {
			return "", &convo.FormatError{
				Index:  i,
				Role:   m.Role,
				Reason: fmt.Sprintf("system message cannot hold %s blocks", b.Type()),
			}
		}
		texts = append(texts, t.Text)
	}
	return strings.Join(texts, "\n"), nil
}

func assistantContent(i int, m convo.Message, logger *slog.Logger) (convo.Content, error) {
	if m.Chunk && len(m.ToolCallChunks) > 0 {
		materialized, err := m.Materialize()
		if err != nil {
			return convo.Content{}, fmt.Errorf("message %d: %w", i, err)
		}
		m = materialized
	}
	if len(m.ToolCalls) == 0 {
		return m.Content, nil
	}
	if m.Content.IsBlocks() {
		logger.Debug("authored blocks take precedence over tool calls",
			slog.Int("index", i), slog.Int("tool_calls", len(m.ToolCalls)))
		return m.Content, nil
	}
	blocks := make([]convo.Block, 0, len(m.ToolCalls)+1)
	if text := m.Content.String(); text != "" {
		blocks = append(blocks, convo.TextBlock{Text: text})
	}
	for _, call := range m.ToolCalls {
		blocks = append(blocks, convo.ToolUseBlock{ID: call.ID, Name: call.Name, Input: call.Args})
	}
	return convo.Blocks(blocks...), nil
}

type wireText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wireToolUse struct {
	Type  string         `json:"type"`
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

type wireToolResult struct {
	Type      string `json:"type"`
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (m WireMessage) MarshalJSON() ([]byte, error) {
	var content any = m.Content.String()
	if m.Content.IsBlocks() {
		blocks := m.Content.BlockList()
		wire := make([]any, 0, len(blocks))
		for _, b := range blocks {
			w, err := wireBlock(b)
			if err != nil {
				return nil, err
			}
			wire = append(wire, w)
		}
		content = wire
	}
	return json.Marshal(struct {
		Role    WireRole `json:"role"`
		Content any      `json:"content"`
	}{Role: m.Role, Content: content})
}

func wireBlock(b convo.Block) (any, error) {
	switch x := b.(type) {
	case convo.TextBlock:
		return wireText{Type: string(convo.BlockText), Text: x.Text}, nil
	case convo.ToolUseBlock:
		input := x.Input
		if input == nil {
			input = map[string]any{}
		}
		return wireToolUse{Type: string(convo.BlockToolUse), ID: x.ID, Name: x.Name, Input: input}, nil
	case convo.ToolResultBlock:
		return wireToolResult{
			Type:      string(convo.BlockToolResult),
			ToolUseID: x.ToolUseID,
			Content:   x.Content,
			IsError:   x.IsError,
		}, nil
	default:
		return nil, fmt.Errorf("anthropic: unknown block type %T", b)
	}
}
