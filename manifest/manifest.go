// Package manifest loads conversations declared in YAML.
//
// A manifest carries an id, optional model_config, tools in any map shape accepted by
// toolspec.Convert, and messages:
//
//	id: weather_chat
//	model_config:
//	  max_tokens: 512
//	tools:
//	  - name: get_weather
//	    description: Current weather
//	    input_schema:
//	      properties:
//	        city: {type: string}
//	      required: [city]
//	messages:
//	  - role: human
//	    content: What's the weather in Paris?
//	  - role: ai
//	    content: ""
//	    tool_calls:
//	      - {id: call_1, name: get_weather, args: {city: Paris}}
//	  - role: tool
//	    tool_call_id: call_1
//	    content: sunny
//
// Content is either a string or a list of blocks (type text, tool_use or tool_result).
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/skosovsky/convo"
	"github.com/skosovsky/convo/toolspec"
)

// fileManifest is the YAML manifest shape.
type fileManifest struct {
	ID          string           `yaml:"id"`
	ModelConfig map[string]any   `yaml:"model_config"`
	Tools       []map[string]any `yaml:"tools"`
	Messages    []fileMessage    `yaml:"messages"`
}

type fileMessage struct {
	Role       string         `yaml:"role"`
	Content    fileContent    `yaml:"content"`
	ToolCalls  []fileToolCall `yaml:"tool_calls"`
	ToolCallID string         `yaml:"tool_call_id"`
	Name       string         `yaml:"name"`
	IsError    bool           `yaml:"is_error"`
}

type fileToolCall struct {
	ID   string         `yaml:"id"`
	Name string         `yaml:"name"`
	Args map[string]any `yaml:"args"`
}

type fileBlock struct {
	Type      string         `yaml:"type"`
	Text      string         `yaml:"text"`
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Input     map[string]any `yaml:"input"`
	ToolUseID string         `yaml:"tool_use_id"`
	Content   string         `yaml:"content"`
	IsError   bool           `yaml:"is_error"`
}

// fileContent is a YAML string or a sequence of blocks.
type fileContent struct {
	text     string
	blocks   []fileBlock
	isBlocks bool
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *fileContent) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&c.text)
	case yaml.SequenceNode:
		c.isBlocks = true
		return value.Decode(&c.blocks)
	default:
		return fmt.Errorf("line %d: content must be a string or a list of blocks", value.Line)
	}
}

// ParseBytes parses a YAML manifest and returns a Conversation.
func ParseBytes(data []byte) (*convo.Conversation, error) {
	var m fileManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", convo.ErrInvalidManifest, err)
	}
	return buildConversation(&m)
}

// ParseFile reads and parses a manifest file.
func ParseFile(path string) (*convo.Conversation, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is validated by caller
	if err != nil {
		return nil, fmt.Errorf("manifest: read file: %w", err)
	}
	return ParseBytes(data)
}

// ParseFS reads and parses a manifest from fs.FS (e.g. embed.FS).
func ParseFS(fsys fs.FS, name string) (*convo.Conversation, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("manifest: read fs: %w", err)
	}
	return ParseBytes(data)
}

func buildConversation(m *fileManifest) (*convo.Conversation, error) {
	if m.ID == "" {
		return nil, fmt.Errorf("%w: missing id", convo.ErrInvalidManifest)
	}
	if len(m.Messages) == 0 {
		return nil, fmt.Errorf("%w: missing messages", convo.ErrInvalidManifest)
	}
	conv := &convo.Conversation{
		ID:          m.ID,
		ModelConfig: m.ModelConfig,
		Messages:    make([]convo.Message, 0, len(m.Messages)),
	}
	for i, fm := range m.Messages {
		msg, err := buildMessage(fm)
		if err != nil {
			return nil, fmt.Errorf("%w: message %d: %w", convo.ErrInvalidManifest, i, err)
		}
		conv.Messages = append(conv.Messages, msg)
	}
	if len(m.Tools) > 0 {
		conv.Tools = make([]convo.ToolDefinition, 0, len(m.Tools))
		for i, raw := range m.Tools {
			def, err := toolspec.Convert(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: tool %d: %w", convo.ErrInvalidManifest, i, err)
			}
			conv.Tools = append(conv.Tools, def)
		}
	}
	return conv, nil
}

func buildMessage(fm fileMessage) (convo.Message, error) {
	role := convo.Role(fm.Role)
	switch role {
	case convo.RoleSystem, convo.RoleHuman, convo.RoleAI:
	case convo.RoleTool:
		if fm.ToolCallID == "" {
			return convo.Message{}, errors.New("tool message needs tool_call_id")
		}
	default:
		return convo.Message{}, fmt.Errorf("invalid role %q", fm.Role)
	}
	if len(fm.ToolCalls) > 0 && role != convo.RoleAI {
		return convo.Message{}, fmt.Errorf("tool_calls on %s message", role)
	}
	content, err := buildContent(fm.Content)
	if err != nil {
		return convo.Message{}, err
	}
	msg := convo.Message{
		Role:       role,
		Content:    content,
		ToolCallID: fm.ToolCallID,
		Name:       fm.Name,
		IsError:    fm.IsError,
	}
	for _, tc := range fm.ToolCalls {
		if tc.ID == "" || tc.Name == "" {
			return convo.Message{}, errors.New("tool call needs id and name")
		}
		args := tc.Args
		if args == nil {
			args = map[string]any{}
		}
		msg.ToolCalls = append(msg.ToolCalls, convo.ToolCall{ID: tc.ID, Name: tc.Name, Args: args})
	}
	return msg, nil
}

func buildContent(fc fileContent) (convo.Content, error) {
	if !fc.isBlocks {
		return convo.Text(fc.text), nil
	}
	blocks := make([]convo.Block, 0, len(fc.blocks))
	for i, b := range fc.blocks {
		switch convo.BlockType(b.Type) {
		case convo.BlockText:
			blocks = append(blocks, convo.TextBlock{Text: b.Text})
		case convo.BlockToolUse:
			if b.ID == "" || b.Name == "" {
				return convo.Content{}, fmt.Errorf("block %d: tool_use needs id and name", i)
			}
			blocks = append(blocks, convo.ToolUseBlock{ID: b.ID, Name: b.Name, Input: b.Input})
		case convo.BlockToolResult:
			if b.ToolUseID == "" {
				return convo.Content{}, fmt.Errorf("block %d: tool_result needs tool_use_id", i)
			}
			blocks = append(blocks, convo.ToolResultBlock{ToolUseID: b.ToolUseID, Content: b.Content, IsError: b.IsError})
		default:
			return convo.Content{}, fmt.Errorf("block %d: unknown type %q", i, b.Type)
		}
	}
	return convo.Blocks(blocks...), nil
}
