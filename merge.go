package convo

import "github.com/skosovsky/convo/internal/cast"

// Merge folds adjacent turns that share a role into a single turn, as required by providers
// that forbid consecutive same-role turns. Tool turns are first rewritten as human turns
// holding one ToolResultBlock, so consecutive tool results and the human turn after them
// end up in one turn.
//
// Two string contents are joined with "\n" (streamed chunks are joined as is); otherwise both
// sides are coerced to blocks and concatenated, and the tool calls of a string AI turn become
// tool_use blocks at its position. AI tool calls and chunk fragments are concatenated in order.
// Merge never mutates msgs and is idempotent.
func Merge(msgs []Message) []Message {
	acc := mergeAcc{out: make([]Message, 0, len(msgs))}
	for _, m := range msgs {
		acc.push(toolResultAsHuman(m.Clone()))
	}
	return acc.flush()
}

// mergeAcc is the fold state: the turn being built and the turns already finalised.
type mergeAcc struct {
	run    Message
	hasRun bool
	out    []Message
}

func (a *mergeAcc) push(m Message) {
	if a.hasRun && a.run.Role == m.Role {
		a.run = mergePair(a.run, m)
		return
	}
	a.flush()
	a.run, a.hasRun = m, true
}

func (a *mergeAcc) flush() []Message {
	if a.hasRun {
		a.out = append(a.out, a.run)
		a.run, a.hasRun = Message{}, false
	}
	return a.out
}

// toolResultAsHuman rewrites a tool turn into a human turn carrying a ToolResultBlock.
func toolResultAsHuman(m Message) Message {
	if m.Role != RoleTool {
		return m
	}
	return Message{
		Role: RoleHuman,
		Content: Content{
			blocks: []Block{ToolResultBlock{
				ToolUseID: m.ToolCallID,
				Content:   m.Content.PlainText(),
				IsError:   m.IsError,
			}},
			isBlocks: true,
		},
	}
}

// mergePair merges b into a. Both are owned copies.
func mergePair(a, b Message) Message {
	merged := a
	if !a.Content.IsBlocks() && !b.Content.IsBlocks() {
		sep := "\n"
		if a.Chunk && b.Chunk {
			sep = ""
		}
		merged.Content = Text(a.Content.text + sep + b.Content.text)
	} else {
		blocks := append(mergeBlocks(a), mergeBlocks(b)...)
		merged.Content = Content{blocks: blocks, isBlocks: true}
	}
	if len(b.ToolCalls) > 0 {
		merged.ToolCalls = append(merged.ToolCalls, b.ToolCalls...)
	}
	if len(b.ToolCallChunks) > 0 {
		merged.ToolCallChunks = append(merged.ToolCallChunks, b.ToolCallChunks...)
	}
	merged.Chunk = a.Chunk && b.Chunk
	return merged
}

// mergeBlocks coerces m to blocks for a block merge. A string AI turn keeps its tool calls as
// tool_use blocks; block content already encodes whatever it means to send.
func mergeBlocks(m Message) []Block {
	blocks := m.Content.AsBlocks()
	if m.Role != RoleAI || m.Content.IsBlocks() {
		return blocks
	}
	for _, c := range m.ToolCalls {
		blocks = append(blocks, ToolUseBlock{ID: c.ID, Name: c.Name, Input: cast.CloneMap(c.Args)})
	}
	return blocks
}
