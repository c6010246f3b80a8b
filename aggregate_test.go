package convo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolTurn(name, content, id string) Message {
	m := NewTool(content, id)
	m.Name = name
	return m
}

func frag(index int, id, name, args string) ToolCallChunk {
	return ToolCallChunk{Index: index, ID: id, Name: name, Args: args}
}

func TestAggregate_StreamedToolCalls(t *testing.T) {
	t.Parallel()
	in := []Message{
		NewHuman("What is 1 + 2? What is 4 - 3?"),
		NewAIChunk("Sure."),
		NewAIChunk("", frag(0, "abc123", "my_adder_tool", "")),
		NewAIChunk("", frag(0, "", "", `{"a": "1", `)),
		NewAIChunk("", frag(0, "", "", `"b": "2"}`)),
		NewAIChunk("", frag(1, "def456", "my_subtractor_tool", "")),
		NewAIChunk("", frag(1, "", "", `{"a": "4", `)),
		NewAIChunk("", frag(1, "", "", `"b": "3"}`)),
		toolTurn("my_adder_tool", `{"result": 3}`, "abc123"),
		toolTurn("my_subtractor_tool", `{"result": 1}`, "def456"),
		NewAIChunk("Answers are 3 and 1."),
		NewHuman("What is 3 + 4?"),
		NewAIChunk("", frag(0, "abc234", "my_adder_tool", "")),
		NewAIChunk("", frag(0, "", "", `{"a": "3", `)),
		NewAIChunk("", frag(0, "", "", `"b": "4"}`)),
		toolTurn("my_adder_tool", `{"result": 7}`, "abc234"),
		NewAIChunk("Answer is 7."),
		NewHuman("Nice job."),
		NewAIChunk("Thank "),
		NewAIChunk("you!"),
	}
	want := []Message{
		NewHuman("What is 1 + 2? What is 4 - 3?"),
		NewAIChunk("Sure."),
		NewAIChunk("",
			frag(0, "abc123", "my_adder_tool", `{"a": "1", "b": "2"}`),
			frag(1, "def456", "my_subtractor_tool", `{"a": "4", "b": "3"}`),
		),
		toolTurn("my_adder_tool", `{"result": 3}`, "abc123"),
		toolTurn("my_subtractor_tool", `{"result": 1}`, "def456"),
		NewAIChunk("Answers are 3 and 1."),
		NewHuman("What is 3 + 4?"),
		NewAIChunk("", frag(0, "abc234", "my_adder_tool", `{"a": "3", "b": "4"}`)),
		toolTurn("my_adder_tool", `{"result": 7}`, "abc234"),
		NewAIChunk("Answer is 7."),
		NewHuman("Nice job."),
		NewAIChunk("Thank "),
		NewAIChunk("you!"),
	}

	assert.Equal(t, want, Aggregate(in))
}

func TestAggregate_InterleavedIndexes(t *testing.T) {
	t.Parallel()
	in := []Message{
		NewAIChunk("Let me ", frag(1, "b", "second", `{"y":`)),
		NewAIChunk("check.", frag(0, "a", "first", `{"x":`)),
		NewAIChunk("", frag(1, "", "", `2}`)),
		NewAIChunk("", frag(0, "", "", `1}`)),
	}
	got := Aggregate(in)
	require.Len(t, got, 1)
	assert.Equal(t, Text("Let me check."), got[0].Content)
	assert.True(t, got[0].Chunk)
	assert.Equal(t, []ToolCallChunk{
		frag(0, "a", "first", `{"x":1}`),
		frag(1, "b", "second", `{"y":2}`),
	}, got[0].ToolCallChunks)
}

func TestAggregate_FirstNonEmptyIdentityWins(t *testing.T) {
	t.Parallel()
	got := Aggregate([]Message{
		NewAIChunk("", frag(0, "", "", `{`)),
		NewAIChunk("", frag(0, "id-1", "lookup", `"q":"go"`)),
		NewAIChunk("", frag(0, "id-2", "other", `}`)),
	})
	require.Len(t, got, 1)
	assert.Equal(t, []ToolCallChunk{frag(0, "id-1", "lookup", `{"q":"go"}`)}, got[0].ToolCallChunks)
}

func TestAggregate_NonChunkEndsRun(t *testing.T) {
	t.Parallel()
	withCall := NewAI("", ToolCall{ID: "x", Name: "f"})
	withCall.ToolCallChunks = []ToolCallChunk{frag(0, "x", "f", "{}")}
	in := []Message{
		NewAIChunk("", frag(0, "a", "f", "{")),
		withCall,
		NewAIChunk("", frag(0, "", "", "}")),
	}
	assert.Equal(t, in, Aggregate(in))
}

func TestAggregate_IncrementalEqualsBatch(t *testing.T) {
	t.Parallel()
	in := []Message{
		NewHuman("go"),
		NewAIChunk("a", frag(0, "1", "f", `{"k"`)),
		NewAIChunk("b", frag(0, "", "", `:`)),
		NewAIChunk("c", frag(0, "", "", `"v"}`)),
		NewAIChunk("d", frag(1, "2", "g", `{}`)),
		toolTurn("f", "ok", "1"),
		NewAIChunk("done"),
	}
	batch := Aggregate(in)
	for split := 0; split <= len(in); split++ {
		incremental := Aggregate(append(Aggregate(in[:split]), in[split:]...))
		assert.Equal(t, batch, incremental, "split at %d", split)
	}
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	in := []Message{
		NewAIChunk("x", frag(0, "1", "f", `{"a":`)),
		NewAIChunk("y", frag(0, "", "", `1}`)),
	}
	snapshot := []Message{in[0].Clone(), in[1].Clone()}

	got := Aggregate(in)
	got[0].ToolCallChunks[0].Args = "mutated"

	assert.Equal(t, snapshot, in)
}

func TestAggregate_Empty(t *testing.T) {
	t.Parallel()
	got := Aggregate(nil)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestToolCallsFromChunks(t *testing.T) {
	t.Parallel()
	calls, err := ToolCallsFromChunks([]ToolCallChunk{
		frag(1, "def456", "my_subtractor_tool", `{"a": "4", "b": "3"}`),
		frag(0, "abc123", "my_adder_tool", `{"a": "1", "b": "2"}`),
		frag(2, "ghi789", "noop", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, []ToolCall{
		{ID: "abc123", Name: "my_adder_tool", Args: map[string]any{"a": "1", "b": "2"}},
		{ID: "def456", Name: "my_subtractor_tool", Args: map[string]any{"a": "4", "b": "3"}},
		{ID: "ghi789", Name: "noop", Args: map[string]any{}},
	}, calls)
}

func TestToolCallsFromChunks_Malformed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args string
	}{
		{"truncated", `{"a": "1", `},
		{"array", `[1, 2]`},
		{"scalar", `42`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ToolCallsFromChunks([]ToolCallChunk{frag(0, "id", "f", tt.args)})
			require.ErrorIs(t, err, ErrMalformedArgs)
		})
	}
}

func TestMessage_Materialize(t *testing.T) {
	t.Parallel()
	agg := Aggregate([]Message{
		NewAIChunk("", frag(0, "abc123", "my_adder_tool", `{"a": `)),
		NewAIChunk("", frag(0, "", "", `1}`)),
	})
	require.Len(t, agg, 1)

	msg, err := agg[0].Materialize()
	require.NoError(t, err)
	assert.False(t, msg.Chunk)
	assert.Nil(t, msg.ToolCallChunks)
	assert.Equal(t, []ToolCall{{ID: "abc123", Name: "my_adder_tool", Args: map[string]any{"a": float64(1)}}}, msg.ToolCalls)

	plain := NewHuman("hi")
	same, err := plain.Materialize()
	require.NoError(t, err)
	assert.Equal(t, plain, same)

	broken := NewAIChunk("", frag(0, "x", "f", `{`))
	_, err = broken.Materialize()
	require.ErrorIs(t, err, ErrMalformedArgs)
}
