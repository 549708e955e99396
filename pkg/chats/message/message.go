// Package message defines the Message type used in conversations.
package message

import (
	"strings"

	"github.com/germanamz/blasko/pkg/chats/content"
	"github.com/germanamz/blasko/pkg/chats/role"
)

// Message represents a single message in a conversation.
// It is a value type that copies cheaply.
type Message struct {
	ID    string
	Role  role.Role
	Parts []content.Part
}

// New creates a message with the given id, role, and content parts.
func New(id string, r role.Role, parts ...content.Part) Message {
	return Message{
		ID:    id,
		Role:  r,
		Parts: parts,
	}
}

// NewText creates a message with a single Text content part.
func NewText(id string, r role.Role, text string) Message {
	return New(id, r, content.Text{Text: text})
}

// TextContent concatenates the text of all Text parts in the message.
func (m Message) TextContent() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(content.Text); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// ToolInvocations returns all ToolInvocation parts in the message.
func (m Message) ToolInvocations() []content.ToolInvocation {
	var out []content.ToolInvocation
	for _, p := range m.Parts {
		if ti, ok := p.(content.ToolInvocation); ok {
			out = append(out, ti)
		}
	}
	return out
}

// AppendText adds text to the message, merging into a trailing Text part.
func (m *Message) AppendText(text string) {
	if n := len(m.Parts); n > 0 {
		if t, ok := m.Parts[n-1].(content.Text); ok {
			m.Parts[n-1] = content.Text{Text: t.Text + text}
			return
		}
	}
	m.Parts = append(m.Parts, content.Text{Text: text})
}

// AppendReasoning adds reasoning text, merging into a trailing Reasoning part.
func (m *Message) AppendReasoning(text string) {
	if n := len(m.Parts); n > 0 {
		if r, ok := m.Parts[n-1].(content.Reasoning); ok {
			m.Parts[n-1] = content.Reasoning{Text: r.Text + text}
			return
		}
	}
	m.Parts = append(m.Parts, content.Reasoning{Text: text})
}
