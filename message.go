package convo

import (
	"slices"
	"strings"

	"github.com/skosovsky/convo/internal/cast"
)

// Role is the author of a turn.
type Role string

// Conversation roles.
const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
	RoleTool   Role = "tool"
)

// BlockType is the wire tag of a content block.
type BlockType string

// Content block tags.
const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// Block is a sealed interface for typed content blocks. Only package types implement it.
type Block interface {
	Type() BlockType
	isBlock()
}

// TextBlock holds plain text.
type TextBlock struct {
	Text string
}

// Type implements Block.
func (TextBlock) Type() BlockType { return BlockText }
func (TextBlock) isBlock()        {}

// ToolUseBlock is a request from the AI to call a named tool.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input map[string]any
}

// Type implements Block.
func (ToolUseBlock) Type() BlockType { return BlockToolUse }
func (ToolUseBlock) isBlock()        {}

// ToolResultBlock carries the output of a tool call back to the AI.
type ToolResultBlock struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// Type implements Block.
func (ToolResultBlock) Type() BlockType { return BlockToolResult }
func (ToolResultBlock) isBlock()        {}

// Content is either a plain string or an ordered sequence of blocks.
// The zero value is the empty string.
type Content struct {
	text     string
	blocks   []Block
	isBlocks bool
}

// Text returns string content.
func Text(s string) Content {
	return Content{text: s}
}

// Blocks returns block content. The slice is copied.
func Blocks(blocks ...Block) Content {
	return Content{blocks: cloneBlocks(blocks), isBlocks: true}
}

// IsBlocks reports whether the content is a block sequence.
func (c Content) IsBlocks() bool { return c.isBlocks }

// String returns the string variant, or "" for block content.
func (c Content) String() string { return c.text }

// BlockList returns a copy of the block variant, or nil for string content.
func (c Content) BlockList() []Block {
	if !c.isBlocks {
		return nil
	}
	return cloneBlocks(c.blocks)
}

// AsBlocks coerces the content to a block sequence: a non-empty string becomes a single
// TextBlock, the empty string no blocks at all.
func (c Content) AsBlocks() []Block {
	if c.isBlocks {
		return cloneBlocks(c.blocks)
	}
	if c.text == "" {
		return []Block{}
	}
	return []Block{TextBlock{Text: c.text}}
}

// PlainText returns the string variant, or the concatenated text of all TextBlocks.
func (c Content) PlainText() string {
	if !c.isBlocks {
		return c.text
	}
	var b strings.Builder
	for _, blk := range c.blocks {
		if t, ok := blk.(TextBlock); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// Len returns the number of blocks, or 1 for string content.
func (c Content) Len() int {
	if c.isBlocks {
		return len(c.blocks)
	}
	return 1
}

// Clone returns a deep copy.
func (c Content) Clone() Content {
	if !c.isBlocks {
		return c
	}
	return Content{blocks: cloneBlocks(c.blocks), isBlocks: true}
}

// ToolCall is a materialised tool invocation attached to an AI turn.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolCallChunk is a streamed fragment of a tool call. Only the first fragment of an index
// usually carries ID and Name; Args is a piece of a JSON document.
type ToolCallChunk struct {
	Index int
	ID    string
	Name  string
	Args  string
}

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content Content

	// ToolCalls are the invocations requested by an AI turn.
	ToolCalls []ToolCall

	// ToolCallID links a tool turn to the invocation it answers. Name is the tool name.
	ToolCallID string
	Name       string
	IsError    bool

	// Chunk marks a partial AI turn produced while streaming.
	Chunk          bool
	ToolCallChunks []ToolCallChunk
}

// NewSystem returns a system turn.
func NewSystem(text string) Message {
	return Message{Role: RoleSystem, Content: Text(text)}
}

// NewHuman returns a human turn with string content.
func NewHuman(text string) Message {
	return Message{Role: RoleHuman, Content: Text(text)}
}

// NewHumanBlocks returns a human turn with block content.
func NewHumanBlocks(blocks ...Block) Message {
	return Message{Role: RoleHuman, Content: Blocks(blocks...)}
}

// NewAI returns an AI turn with string content and optional tool calls.
func NewAI(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAI, Content: Text(text), ToolCalls: cloneToolCalls(calls)}
}

// NewAIBlocks returns an AI turn with block content.
func NewAIBlocks(blocks ...Block) Message {
	return Message{Role: RoleAI, Content: Blocks(blocks...)}
}

// NewTool returns a tool-result turn answering the call with the given id.
func NewTool(content, toolCallID string) Message {
	return Message{Role: RoleTool, Content: Text(content), ToolCallID: toolCallID}
}

// NewAIChunk returns a streamed AI fragment.
func NewAIChunk(text string, chunks ...ToolCallChunk) Message {
	return Message{Role: RoleAI, Content: Text(text), Chunk: true, ToolCallChunks: cloneChunks(chunks)}
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	out.Content = m.Content.Clone()
	out.ToolCalls = cloneToolCalls(m.ToolCalls)
	out.ToolCallChunks = cloneChunks(m.ToolCallChunks)
	return out
}

// ToolDefinition is the canonical tool description sent to a provider.
// InputSchema is an object-typed JSON Schema with "properties" and "required".
type ToolDefinition struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	InputSchema map[string]any `json:"input_schema" yaml:"input_schema"`
}

// Clone returns a deep copy of the definition.
func (d ToolDefinition) Clone() ToolDefinition {
	out := d
	out.InputSchema = cast.CloneMap(d.InputSchema)
	return out
}

// Conversation is a complete request handed to a provider adapter.
type Conversation struct {
	ID          string
	Messages    []Message
	Tools       []ToolDefinition
	ModelConfig map[string]any
}

// Clone returns a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := &Conversation{ID: c.ID, ModelConfig: cast.CloneMap(c.ModelConfig)}
	if c.Messages != nil {
		out.Messages = make([]Message, len(c.Messages))
		for i, m := range c.Messages {
			out.Messages[i] = m.Clone()
		}
	}
	if c.Tools != nil {
		out.Tools = make([]ToolDefinition, len(c.Tools))
		for i, t := range c.Tools {
			out.Tools[i] = t.Clone()
		}
	}
	return out
}

func cloneBlocks(blocks []Block) []Block {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		if tu, ok := b.(ToolUseBlock); ok {
			tu.Input = cast.CloneMap(tu.Input)
			b = tu
		}
		out[i] = b
	}
	return out
}

func cloneToolCalls(calls []ToolCall) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]ToolCall, len(calls))
	for i, c := range calls {
		c.Args = cast.CloneMap(c.Args)
		out[i] = c
	}
	return out
}

func cloneChunks(chunks []ToolCallChunk) []ToolCallChunk {
	if len(chunks) == 0 {
		return nil
	}
	return slices.Clone(chunks)
}
