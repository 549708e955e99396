package transcript

import (
	"strings"

	"github.com/google/uuid"

	"github.com/germanamz/blasko/pkg/uistream"
)

// ToolCall is the client view of one tool invocation.
type ToolCall struct {
	ID        string
	Name      string
	State     string
	Input     string
	Output    string
	ErrorText string
	ErrorKind string
}

// Builder assembles an assistant message from a chunk stream.
type Builder struct {
	msg   uistream.UIMessage
	parts map[string]int // text/reasoning id or tool call id -> part index

	FinishReason string
	ErrorText    string
	AbortReason  string
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		msg:   uistream.UIMessage{Role: "assistant"},
		parts: make(map[string]int),
	}
}

// Apply folds one chunk into the message.
func (b *Builder) Apply(c uistream.Chunk) {
	switch c.Type {
	case uistream.ChunkStart:
		b.msg.ID = c.MessageID
	case uistream.ChunkStartStep:
		b.msg.Parts = append(b.msg.Parts, uistream.UIPart{Type: "step-start"})
	case uistream.ChunkTextDelta:
		b.appendDelta("text", c.ID, c.Delta)
	case uistream.ChunkReasoningDelta:
		b.appendDelta("reasoning", c.ID, c.Delta)
	case uistream.ChunkSourceURL:
		b.msg.Parts = append(b.msg.Parts, uistream.UIPart{
			Type:     "source-url",
			SourceID: c.SourceID,
			URL:      c.URL,
			Title:    c.Title,
		})
	case uistream.ChunkToolInputAvailable:
		b.parts["tool:"+c.ToolCallID] = len(b.msg.Parts)
		b.msg.Parts = append(b.msg.Parts, uistream.UIPart{
			Type:       "tool-" + c.ToolName,
			ToolCallID: c.ToolCallID,
			State:      "input-available",
			Input:      c.Input,
		})
	case uistream.ChunkToolOutputAvailable:
		if p := b.tool(c.ToolCallID); p != nil {
			p.State = "output-available"
			p.Output = c.Output
		}
	case uistream.ChunkToolOutputError:
		if p := b.tool(c.ToolCallID); p != nil {
			p.State = "output-error"
			p.ErrorText = c.ErrorText
			p.ErrorKind = c.ErrorKind
		}
	case uistream.ChunkFinish:
		b.FinishReason = c.FinishReason
	case uistream.ChunkError:
		b.ErrorText = c.ErrorText
	case uistream.ChunkAbort:
		b.AbortReason = c.Reason
		if b.AbortReason == "" {
			b.AbortReason = "aborted"
		}
	}
}

func (b *Builder) appendDelta(kind, id, delta string) {
	key := kind + ":" + id
	if i, ok := b.parts[key]; ok {
		b.msg.Parts[i].Text += delta
		return
	}
	b.parts[key] = len(b.msg.Parts)
	b.msg.Parts = append(b.msg.Parts, uistream.UIPart{Type: kind, Text: delta})
}

func (b *Builder) tool(id string) *uistream.UIPart {
	i, ok := b.parts["tool:"+id]
	if !ok {
		return nil
	}
	return &b.msg.Parts[i]
}

// Done reports whether the stream reached a terminal chunk.
func (b *Builder) Done() bool {
	return b.FinishReason != "" || b.ErrorText != "" || b.AbortReason != ""
}

// Text returns the answer text so far.
func (b *Builder) Text() string {
	var sb strings.Builder
	for _, p := range b.msg.Parts {
		if p.Type == "text" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// Reasoning returns the reasoning text so far.
func (b *Builder) Reasoning() string {
	var sb strings.Builder
	for _, p := range b.msg.Parts {
		if p.Type == "reasoning" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// ToolCalls returns the invocations in stream order.
func (b *Builder) ToolCalls() []ToolCall {
	var out []ToolCall
	for _, p := range b.msg.Parts {
		name, ok := strings.CutPrefix(p.Type, "tool-")
		if !ok {
			continue
		}
		out = append(out, ToolCall{
			ID:        p.ToolCallID,
			Name:      name,
			State:     p.State,
			Input:     string(p.Input),
			Output:    string(p.Output),
			ErrorText: p.ErrorText,
			ErrorKind: p.ErrorKind,
		})
	}
	return out
}

// Message returns the assistant message. Tool calls that never resolved are
// dropped so the history stays replayable; a missing id is generated.
func (b *Builder) Message() uistream.UIMessage {
	msg := uistream.UIMessage{ID: b.msg.ID, Role: b.msg.Role}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	for _, p := range b.msg.Parts {
		if strings.HasPrefix(p.Type, "tool-") && p.State == "input-available" {
			continue
		}
		msg.Parts = append(msg.Parts, p)
	}

	if !hasContent(msg.Parts) {
		msg.Parts = nil
	}
	return msg
}

func hasContent(parts []uistream.UIPart) bool {
	for _, p := range parts {
		if p.Type != "step-start" {
			return true
		}
	}
	return false
}
