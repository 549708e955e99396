// Package chat provides the conversation a model call is made with. A Chat
// is assembled per request from the client's history and grows as the
// orchestrator appends tool steps.
package chat

import "github.com/germanamz/blasko/pkg/chats/message"

// Chat holds a system prompt and the ordered user and assistant messages.
// It is not safe for concurrent use.
type Chat struct {
	ID string

	system   string
	messages []message.Message
}

// New creates a Chat holding msgs.
func New(id string, msgs ...message.Message) *Chat {
	return &Chat{ID: id, messages: msgs}
}

// Append adds messages to the end of the conversation.
func (c *Chat) Append(msgs ...message.Message) {
	c.messages = append(c.messages, msgs...)
}

// Len is the number of messages, not counting the system prompt.
func (c *Chat) Len() int { return len(c.messages) }

// Last returns the newest message.
func (c *Chat) Last() (message.Message, bool) {
	if len(c.messages) == 0 {
		return message.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Messages returns a copy of the messages, oldest first.
func (c *Chat) Messages() []message.Message {
	return append([]message.Message(nil), c.messages...)
}

// SetSystemPrompt replaces the system prompt.
func (c *Chat) SetSystemPrompt(text string) { c.system = text }

// SystemPrompt returns the system prompt, empty when unset.
func (c *Chat) SystemPrompt() string { return c.system }
