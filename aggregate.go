package convo

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Aggregate reduces streamed AI chunks into complete tool-calling turns.
//
// Two adjacent AI chunks are combined when both carry tool-call fragments: their text deltas
// are concatenated and fragments with the same Index are joined (first non-empty ID and Name
// win, Args are appended in arrival order). Fragments of the result are ordered by Index.
// Every other turn, including text-only chunks, is passed through unchanged and in order.
//
// Aggregate is a single-pass fold with no look-ahead, so aggregating a prefix and then the
// rest gives the same result as aggregating everything at once. Args are not validated;
// see ToolCallsFromChunks.
func Aggregate(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		m = m.Clone()
		if n := len(out); n > 0 && continuesToolCall(out[n-1], m) {
			out[n-1] = concatChunks(out[n-1], m)
			continue
		}
		out = append(out, m)
	}
	return out
}

func continuesToolCall(prev, next Message) bool {
	return prev.Chunk && next.Chunk &&
		prev.Role == RoleAI && next.Role == RoleAI &&
		len(prev.ToolCallChunks) > 0 && len(next.ToolCallChunks) > 0
}

// concatChunks appends b to a. Both are owned copies.
func concatChunks(a, b Message) Message {
	out := a
	if !a.Content.IsBlocks() && !b.Content.IsBlocks() {
		out.Content = Text(a.Content.text + b.Content.text)
	} else {
		out.Content = Content{blocks: append(a.Content.AsBlocks(), b.Content.AsBlocks()...), isBlocks: true}
	}
	out.ToolCallChunks = mergeFragments(a.ToolCallChunks, b.ToolCallChunks)
	if len(b.ToolCalls) > 0 {
		out.ToolCalls = append(out.ToolCalls, b.ToolCalls...)
	}
	return out
}

func mergeFragments(left, right []ToolCallChunk) []ToolCallChunk {
	out := slices.Clone(left)
	pos := make(map[int]int, len(out)+len(right))
	for i, f := range out {
		if _, seen := pos[f.Index]; !seen {
			pos[f.Index] = i
		}
	}
	for _, f := range right {
		i, ok := pos[f.Index]
		if !ok {
			pos[f.Index] = len(out)
			out = append(out, f)
			continue
		}
		cur := &out[i]
		if cur.ID == "" {
			cur.ID = f.ID
		}
		if cur.Name == "" {
			cur.Name = f.Name
		}
		cur.Args += f.Args
	}
	slices.SortStableFunc(out, func(a, b ToolCallChunk) int { return cmp.Compare(a.Index, b.Index) })
	return out
}

// ToolCallsFromChunks parses reconstructed fragments into tool calls, ordered by Index.
// Empty Args become an empty argument object. Args that are not a JSON object return
// an error wrapping ErrMalformedArgs.
func ToolCallsFromChunks(chunks []ToolCallChunk) ([]ToolCall, error) {
	sorted := slices.Clone(chunks)
	slices.SortStableFunc(sorted, func(a, b ToolCallChunk) int { return cmp.Compare(a.Index, b.Index) })
	calls := make([]ToolCall, 0, len(sorted))
	for _, c := range sorted {
		args := map[string]any{}
		if raw := strings.TrimSpace(c.Args); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return nil, fmt.Errorf("%w: tool call %d (%s): %w", ErrMalformedArgs, c.Index, c.Name, err)
			}
			if args == nil {
				args = map[string]any{}
			}
		}
		calls = append(calls, ToolCall{ID: c.ID, Name: c.Name, Args: args})
	}
	return calls, nil
}

// Materialize turns an aggregated AI chunk into a regular AI turn whose ToolCalls are parsed
// from its fragments. Non-chunk messages are returned as copies.
func (m Message) Materialize() (Message, error) {
	out := m.Clone()
	if !m.Chunk {
		return out, nil
	}
	calls, err := ToolCallsFromChunks(m.ToolCallChunks)
	if err != nil {
		return Message{}, err
	}
	out.Chunk = false
	out.ToolCallChunks = nil
	out.ToolCalls = append(out.ToolCalls, calls...)
	if len(out.ToolCalls) == 0 {
		out.ToolCalls = nil
	}
	return out, nil
}
