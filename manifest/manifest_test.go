package manifest

import (
	"context"
	"embed"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/convo"
	"github.com/skosovsky/convo/adapter/anthropic"
)

//go:embed testdata/*.yaml
var testdataFS embed.FS

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParseBytes_ValidSimple(t *testing.T) {
	t.Parallel()
	data := []byte(`
id: greeting
messages:
  - role: system
    content: "Be brief."
  - role: human
    content: "Hello"
`)
	conv, err := ParseBytes(data)
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, "greeting", conv.ID)
	assert.Equal(t, []convo.Message{convo.NewSystem("Be brief."), convo.NewHuman("Hello")}, conv.Messages)
	assert.Nil(t, conv.Tools)
	assert.Nil(t, conv.ModelConfig)
}

func TestParseBytes_ValidFull(t *testing.T) {
	t.Parallel()
	data, err := testdataFS.ReadFile("testdata/valid_full.yaml")
	require.NoError(t, err)
	conv, err := ParseBytes(data)
	require.NoError(t, err)

	assert.Equal(t, "weather_chat", conv.ID)
	assert.Equal(t, "claude-sonnet-4-5", conv.ModelConfig["model"])
	assert.Equal(t, 512, conv.ModelConfig["max_tokens"])

	require.Len(t, conv.Tools, 3)
	assert.Equal(t, "get_weather", conv.Tools[0].Name)
	assert.Equal(t, []string{"city"}, conv.Tools[0].InputSchema["required"])
	assert.Equal(t, convo.ToolDefinition{
		Name:        "dummy_function",
		Description: "dummy function",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"arg1": map[string]any{"description": "foo", "type": "integer"},
				"arg2": map[string]any{"description": "one of 'bar', 'baz'", "enum": []any{"bar", "baz"}, "type": "string"},
			},
			"required": []string{"arg1", "arg2"},
		},
	}, conv.Tools[1])
	assert.Equal(t, "get_time", conv.Tools[2].Name)
	assert.Equal(t, []string{}, conv.Tools[2].InputSchema["required"])

	require.Len(t, conv.Messages, 6)
	assert.Equal(t, convo.NewAI("", convo.ToolCall{
		ID: "call_1", Name: "get_weather", Args: map[string]any{"city": "Paris"},
	}), conv.Messages[2])
	assert.Equal(t, convo.Message{
		Role:       convo.RoleTool,
		Content:    convo.Text("sunny, 22C"),
		ToolCallID: "call_1",
		Name:       "get_weather",
	}, conv.Messages[3])
	assert.Equal(t, convo.NewAIBlocks(
		convo.TextBlock{Text: "It is sunny."},
		convo.ToolUseBlock{ID: "call_2", Name: "get_time", Input: map[string]any{"tz": "Europe/Paris"}},
	), conv.Messages[4])
	assert.Equal(t, convo.NewHumanBlocks(
		convo.ToolResultBlock{ToolUseID: "call_2", Content: "14:00"},
		convo.TextBlock{Text: "Thanks!"},
	), conv.Messages[5])
}

func TestParseBytes_TranslatesForAnthropic(t *testing.T) {
	t.Parallel()
	conv, err := ParseFS(testdataFS, "testdata/valid_full.yaml")
	require.NoError(t, err)

	params, err := anthropic.New().TranslateTyped(context.Background(), conv)
	require.NoError(t, err)
	require.Len(t, params.System, 1)
	assert.Equal(t, "You are a weather assistant.", params.System[0].Text)
	require.Len(t, params.Messages, 5)
	assert.Equal(t, int64(512), params.MaxTokens)
	assert.Equal(t, []string{"END"}, params.StopSequences)
	require.Len(t, params.Tools, 3)
}

func TestParseBytes_Invalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "id: x\nmessages:\n  - role: system\n  content: [unclosed"},
		{"invalid role", "id: x\nmessages:\n  - role: assistant\n    content: Hi\n"},
		{"tool without id", "id: x\nmessages:\n  - role: tool\n    content: ok\n"},
		{"tool calls on human", "id: x\nmessages:\n  - role: human\n    content: hi\n    tool_calls:\n      - {id: a, name: f}\n"},
		{"tool call without name", "id: x\nmessages:\n  - role: ai\n    tool_calls:\n      - {id: a}\n"},
		{"content mapping", "id: x\nmessages:\n  - role: human\n    content: {text: hi}\n"},
		{"unknown block", "id: x\nmessages:\n  - role: human\n    content:\n      - type: image\n"},
		{"tool_use without id", "id: x\nmessages:\n  - role: ai\n    content:\n      - {type: tool_use, name: f}\n"},
		{"tool_result without id", "id: x\nmessages:\n  - role: human\n    content:\n      - {type: tool_result, content: ok}\n"},
		{"unsupported tool", "id: x\ntools:\n  - {foo: bar}\nmessages:\n  - role: human\n    content: hi\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseBytes([]byte(tt.data))
			require.ErrorIs(t, err, convo.ErrInvalidManifest)
		})
	}
}

func TestParseBytes_UnsupportedToolKeepsCause(t *testing.T) {
	t.Parallel()
	_, err := ParseBytes([]byte("id: x\ntools:\n  - {foo: bar}\nmessages:\n  - role: human\n    content: hi\n"))
	require.ErrorIs(t, err, convo.ErrUnsupportedToolSpec)
	assert.Contains(t, err.Error(), "tool 0")
}

func TestParseBytes_InvalidMissingID(t *testing.T) {
	t.Parallel()
	data, err := testdataFS.ReadFile("testdata/invalid_missing_id.yaml")
	require.NoError(t, err)
	_, err = ParseBytes(data)
	require.ErrorIs(t, err, convo.ErrInvalidManifest)
	assert.Contains(t, err.Error(), "missing id")
}

func TestParseBytes_InvalidMissingMessages(t *testing.T) {
	t.Parallel()
	data, err := testdataFS.ReadFile("testdata/invalid_missing_messages.yaml")
	require.NoError(t, err)
	_, err = ParseBytes(data)
	require.ErrorIs(t, err, convo.ErrInvalidManifest)
	assert.Contains(t, err.Error(), "missing messages")
}

func TestParseFile(t *testing.T) {
	t.Parallel()
	conv, err := ParseFile("testdata/valid_simple.yaml")
	require.NoError(t, err)
	assert.Equal(t, "simple_chat", conv.ID)

	_, err = ParseFile("testdata/does_not_exist.yaml")
	require.Error(t, err)
	assert.NotErrorIs(t, err, convo.ErrInvalidManifest)
}

func TestParseFS(t *testing.T) {
	t.Parallel()
	conv, err := ParseFS(testdataFS, "testdata/valid_simple.yaml")
	require.NoError(t, err)
	assert.Equal(t, "simple_chat", conv.ID)
	assert.Equal(t, []convo.Message{convo.NewHuman("Hello there.")}, conv.Messages)
}
