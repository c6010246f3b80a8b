package convo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMerge_ToolResultsAndFollowUp(t *testing.T) {
	t.Parallel()
	call := ToolCall{ID: "foo", Name: "bar", Args: map[string]any{"baz": "buzz"}}
	in := []Message{
		NewSystem("fuzz"),
		NewHuman("foo"),
		NewAI("", call),
		NewTool("blurb", "foo"),
		NewTool("blah", "bar"),
		NewHuman("next thing"),
	}

	got := Merge(in)

	want := []Message{
		NewSystem("fuzz"),
		NewHuman("foo"),
		NewAI("", call),
		NewHumanBlocks(
			ToolResultBlock{ToolUseID: "foo", Content: "blurb"},
			ToolResultBlock{ToolUseID: "bar", Content: "blah"},
			TextBlock{Text: "next thing"},
		),
	}
	assert.Equal(t, want, got)
}

func TestMerge_Cases(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   []Message
		want []Message
	}{
		{
			name: "empty",
			in:   nil,
			want: []Message{},
		},
		{
			name: "single",
			in:   []Message{NewHuman("hi")},
			want: []Message{NewHuman("hi")},
		},
		{
			name: "strings joined with newline",
			in:   []Message{NewHuman("a"), NewHuman("b"), NewHuman("c")},
			want: []Message{NewHuman("a\nb\nc")},
		},
		{
			name: "string and blocks",
			in:   []Message{NewHuman("a"), NewHumanBlocks(TextBlock{Text: "b"})},
			want: []Message{NewHumanBlocks(TextBlock{Text: "a"}, TextBlock{Text: "b"})},
		},
		{
			name: "blocks and string",
			in:   []Message{NewHumanBlocks(TextBlock{Text: "a"}), NewHuman("b")},
			want: []Message{NewHumanBlocks(TextBlock{Text: "a"}, TextBlock{Text: "b"})},
		},
		{
			name: "alternating roles untouched",
			in:   []Message{NewHuman("a"), NewAI("b"), NewHuman("c")},
			want: []Message{NewHuman("a"), NewAI("b"), NewHuman("c")},
		},
		{
			name: "ai tool calls concatenated",
			in: []Message{
				NewAI("a", ToolCall{ID: "1", Name: "x"}),
				NewAI("b", ToolCall{ID: "2", Name: "y"}),
			},
			want: []Message{
				NewAI("a\nb", ToolCall{ID: "1", Name: "x"}, ToolCall{ID: "2", Name: "y"}),
			},
		},
		{
			name: "ai blocks then ai string with tool calls",
			in: []Message{
				NewAIBlocks(TextBlock{Text: "thinking"}),
				NewAI("", ToolCall{ID: "t1", Name: "lookup", Args: map[string]any{"q": "x"}}),
			},
			want: []Message{{
				Role: RoleAI,
				Content: Blocks(
					TextBlock{Text: "thinking"},
					ToolUseBlock{ID: "t1", Name: "lookup", Input: map[string]any{"q": "x"}},
				),
				ToolCalls: []ToolCall{{ID: "t1", Name: "lookup", Args: map[string]any{"q": "x"}}},
			}},
		},
		{
			name: "ai string with tool calls then ai blocks",
			in: []Message{
				NewAI("a", ToolCall{ID: "1", Name: "x"}),
				NewAIBlocks(TextBlock{Text: "b"}),
			},
			want: []Message{{
				Role:      RoleAI,
				Content:   Blocks(TextBlock{Text: "a"}, ToolUseBlock{ID: "1", Name: "x"}, TextBlock{Text: "b"}),
				ToolCalls: []ToolCall{{ID: "1", Name: "x"}},
			}},
		},
		{
			name: "empty string dropped when merged with blocks",
			in:   []Message{NewHuman(""), NewHumanBlocks(TextBlock{Text: "b"})},
			want: []Message{NewHumanBlocks(TextBlock{Text: "b"})},
		},
		{
			name: "streamed chunks joined without separator",
			in:   []Message{NewAIChunk("Hel"), NewAIChunk("lo")},
			want: []Message{NewAIChunk("Hello")},
		},
		{
			name: "tool error flag kept",
			in:   []Message{{Role: RoleTool, Content: Text("boom"), ToolCallID: "t1", IsError: true}},
			want: []Message{NewHumanBlocks(ToolResultBlock{ToolUseID: "t1", Content: "boom", IsError: true})},
		},
		{
			name: "tool with block content uses its text",
			in: []Message{{
				Role:       RoleTool,
				Content:    Blocks(TextBlock{Text: "part1 "}, TextBlock{Text: "part2"}),
				ToolCallID: "t1",
			}},
			want: []Message{NewHumanBlocks(ToolResultBlock{ToolUseID: "t1", Content: "part1 part2"})},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Merge(tt.in)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	in := []Message{
		NewHumanBlocks(TextBlock{Text: "a"}),
		NewHuman("b"),
		NewAI("", ToolCall{ID: "1", Name: "x", Args: map[string]any{"k": "v"}}),
		NewAI("c", ToolCall{ID: "2", Name: "y"}),
	}
	snapshot := make([]Message, len(in))
	for i, m := range in {
		snapshot[i] = m.Clone()
	}

	got := Merge(in)
	got[1].ToolCalls[0].Args["k"] = "changed"

	assert.Equal(t, snapshot, in)
}

func TestMerge_Idempotent(t *testing.T) {
	t.Parallel()
	in := []Message{
		NewSystem("s"),
		NewHuman("a"),
		NewHuman("b"),
		NewAI("x", ToolCall{ID: "1", Name: "f"}),
		NewTool("r1", "1"),
		NewTool("r2", "2"),
		NewHuman("c"),
		NewAI("y"),
		NewAI("z"),
	}
	once := Merge(in)
	assert.Equal(t, once, Merge(once))
}

func TestMerge_NoAdjacentSameRole(t *testing.T) {
	t.Parallel()
	roles := []Role{RoleHuman, RoleHuman, RoleTool, RoleAI, RoleAI, RoleTool, RoleTool, RoleHuman, RoleAI}
	in := make([]Message, 0, len(roles))
	for i, r := range roles {
		in = append(in, Message{Role: r, Content: Text(string(rune('a' + i))), ToolCallID: "id"})
	}
	got := Merge(in)
	for i := 1; i < len(got); i++ {
		assert.NotEqual(t, got[i-1].Role, got[i].Role, "turns %d and %d share a role", i-1, i)
	}
}

func TestMerge_ChunkFlag(t *testing.T) {
	t.Parallel()
	got := Merge([]Message{NewAIChunk("a"), NewAIChunk("b")})
	require.Len(t, got, 1)
	assert.True(t, got[0].Chunk)

	got = Merge([]Message{NewAIChunk("a"), NewAI("b")})
	require.Len(t, got, 1)
	assert.False(t, got[0].Chunk)
}
