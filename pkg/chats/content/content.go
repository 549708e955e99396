// Package content defines the parts a chat message is made of.
package content

import (
	"encoding/json"
	"fmt"
)

// Part is a piece of content within a message.
// External packages can implement this interface to add custom content types.
type Part interface {
	PartKind() string
}

// Text is a plain text content part.
type Text struct {
	Text string
}

func (t Text) PartKind() string { return "text" }

// Reasoning is model reasoning text, kept apart from the answer.
type Reasoning struct {
	Text string
}

func (r Reasoning) PartKind() string { return "reasoning" }

// Source references a document the model grounded its answer on.
type Source struct {
	ID    string
	URL   string
	Title string
}

func (s Source) PartKind() string { return "source-url" }

// ToolCall represents a model's request to invoke a tool.
// Arguments holds the raw JSON string to avoid unnecessary deserialization.
// Metadata carries provider-specific opaque data (e.g. Gemini thought signatures)
// that must survive round-trips through the conversation history.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
	Metadata  map[string]string
}

func (tc ToolCall) PartKind() string { return "tool_call" }

// ToolState is the lifecycle state of a tool invocation.
type ToolState string

const (
	StateInputStreaming  ToolState = "input-streaming"
	StateInputAvailable  ToolState = "input-available"
	StateOutputAvailable ToolState = "output-available"
	StateOutputError     ToolState = "output-error"
)

func (s ToolState) rank() int {
	switch s {
	case StateInputStreaming:
		return 1
	case StateInputAvailable:
		return 2
	case StateOutputAvailable, StateOutputError:
		return 3
	}
	return 0
}

// Valid reports whether s is a known state.
func (s ToolState) Valid() bool { return s.rank() > 0 }

// Terminal reports whether s is output-available or output-error.
func (s ToolState) Terminal() bool { return s.rank() == 3 }

// ToolInvocation is a tool call together with its resolution. It moves
// strictly forward through its states and is never re-executed once terminal.
type ToolInvocation struct {
	ID        string
	Name      string
	State     ToolState
	Input     json.RawMessage
	Output    json.RawMessage
	ErrorText string
	ErrorKind string
	Metadata  map[string]string
}

func (ti ToolInvocation) PartKind() string { return "tool-invocation" }

// NewInvocation creates an invocation in the input-available state from a
// model tool call.
func NewInvocation(tc ToolCall) ToolInvocation {
	input := json.RawMessage(tc.Arguments)
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}

	return ToolInvocation{
		ID:       tc.ID,
		Name:     tc.Name,
		State:    StateInputAvailable,
		Input:    input,
		Metadata: tc.Metadata,
	}
}

// Call returns the invocation as the ToolCall that produced it.
func (ti ToolInvocation) Call() ToolCall {
	return ToolCall{
		ID:        ti.ID,
		Name:      ti.Name,
		Arguments: string(ti.Input),
		Metadata:  ti.Metadata,
	}
}

// Advance moves the invocation to next. Moving backward, staying in the same
// state or leaving a terminal state is an error.
func (ti *ToolInvocation) Advance(next ToolState) error {
	if !next.Valid() {
		return fmt.Errorf("content: unknown tool state %q", next)
	}
	if ti.State.Terminal() || next.rank() <= ti.State.rank() {
		return fmt.Errorf("content: tool invocation %s: cannot move from %q to %q", ti.ID, ti.State, next)
	}

	ti.State = next
	return nil
}

// Resolve moves the invocation to output-available with the given output.
func (ti *ToolInvocation) Resolve(output json.RawMessage) error {
	if err := ti.Advance(StateOutputAvailable); err != nil {
		return err
	}

	ti.Output = output
	return nil
}

// Fail moves the invocation to output-error.
func (ti *ToolInvocation) Fail(text, kind string) error {
	if err := ti.Advance(StateOutputError); err != nil {
		return err
	}

	ti.ErrorText = text
	ti.ErrorKind = kind
	return nil
}

// WalletStatus is the outcome the wallet reported for a described transaction.
type WalletStatus string

const (
	WalletSuccess  WalletStatus = "success"
	WalletRejected WalletStatus = "rejected"
	WalletFailed   WalletStatus = "failed"
)

// WalletResult is the client's report of what the wallet did with the
// transaction a tool invocation described.
type WalletResult struct {
	ToolCallID string
	Status     WalletStatus
	TxID       string
	Error      string
}

func (w WalletResult) PartKind() string { return "wallet-result" }
