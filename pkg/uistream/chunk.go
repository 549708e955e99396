// Package uistream defines the wire vocabulary between the chat server and
// its clients: the inbound request with client-owned messages and the
// outbound chunk stream.
package uistream

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/germanamz/blasko/pkg/chats/content"
	"github.com/germanamz/blasko/pkg/sse"
)

// ChunkType tags an outbound chunk.
type ChunkType string

const (
	ChunkStart               ChunkType = "start"
	ChunkStartStep           ChunkType = "start-step"
	ChunkTextDelta           ChunkType = "text-delta"
	ChunkReasoningDelta      ChunkType = "reasoning-delta"
	ChunkSourceURL           ChunkType = "source-url"
	ChunkToolInputAvailable  ChunkType = "tool-input-available"
	ChunkToolOutputAvailable ChunkType = "tool-output-available"
	ChunkToolOutputError     ChunkType = "tool-output-error"
	ChunkFinishStep          ChunkType = "finish-step"
	ChunkFinish              ChunkType = "finish"
	ChunkAbort               ChunkType = "abort"
	ChunkError               ChunkType = "error"
)

// Chunk is one event of the response stream. Only the fields relevant to its
// Type are set.
type Chunk struct {
	Type         ChunkType       `json:"type"`
	MessageID    string          `json:"messageId,omitempty"`
	ID           string          `json:"id,omitempty"`
	Delta        string          `json:"delta,omitempty"`
	SourceID     string          `json:"sourceId,omitempty"`
	URL          string          `json:"url,omitempty"`
	Title        string          `json:"title,omitempty"`
	ToolCallID   string          `json:"toolCallId,omitempty"`
	ToolName     string          `json:"toolName,omitempty"`
	Input        json.RawMessage `json:"input,omitempty"`
	Output       json.RawMessage `json:"output,omitempty"`
	ErrorText    string          `json:"errorText,omitempty"`
	ErrorKind    string          `json:"errorKind,omitempty"`
	FinishReason string          `json:"finishReason,omitempty"`
	Reason       string          `json:"reason,omitempty"`
}

// Start opens the assistant message.
func Start(messageID string) Chunk { return Chunk{Type: ChunkStart, MessageID: messageID} }

// StartStep marks the beginning of one model call.
func StartStep() Chunk { return Chunk{Type: ChunkStartStep} }

// FinishStep marks the end of one model call and its tool calls.
func FinishStep() Chunk { return Chunk{Type: ChunkFinishStep} }

// Finish closes the assistant message.
func Finish(reason string) Chunk { return Chunk{Type: ChunkFinish, FinishReason: reason} }

// Abort reports that the response was cut short.
func Abort(reason string) Chunk { return Chunk{Type: ChunkAbort, Reason: reason} }

// Error reports a failure that ended the response.
func Error(text string) Chunk { return Chunk{Type: ChunkError, ErrorText: text} }

// TextDelta carries a piece of answer text.
func TextDelta(id, delta string) Chunk { return Chunk{Type: ChunkTextDelta, ID: id, Delta: delta} }

// ReasoningDelta carries a piece of reasoning text.
func ReasoningDelta(id, delta string) Chunk {
	return Chunk{Type: ChunkReasoningDelta, ID: id, Delta: delta}
}

// SourceURL carries a source reference.
func SourceURL(s content.Source) Chunk {
	return Chunk{Type: ChunkSourceURL, SourceID: s.ID, URL: s.URL, Title: s.Title}
}

// ToolInput announces an invocation whose input is available.
func ToolInput(inv content.ToolInvocation) Chunk {
	return Chunk{
		Type:       ChunkToolInputAvailable,
		ToolCallID: inv.ID,
		ToolName:   inv.Name,
		Input:      inv.Input,
	}
}

// ToolOutput reports a resolved invocation. It returns an error chunk type
// for invocations in output-error.
func ToolOutput(inv content.ToolInvocation) Chunk {
	if inv.State == content.StateOutputError {
		return Chunk{
			Type:       ChunkToolOutputError,
			ToolCallID: inv.ID,
			ErrorText:  inv.ErrorText,
			ErrorKind:  inv.ErrorKind,
		}
	}

	return Chunk{
		Type:       ChunkToolOutputAvailable,
		ToolCallID: inv.ID,
		Output:     inv.Output,
	}
}

// ReadChunks decodes an SSE chunk stream from r and calls fn for each chunk.
func ReadChunks(r io.Reader, fn func(Chunk) error) error {
	return sse.Each(r, func(ev sse.Event) error {
		var c Chunk
		if err := json.Unmarshal(ev.Data, &c); err != nil {
			return fmt.Errorf("uistream: decode chunk: %w", err)
		}
		return fn(c)
	})
}
