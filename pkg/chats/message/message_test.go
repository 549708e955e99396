package message

import (
	"testing"

	"github.com/germanamz/blasko/pkg/chats/content"
	"github.com/germanamz/blasko/pkg/chats/role"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	msg := New("m1", role.User, content.Text{Text: "hello"}, content.Source{URL: "u"})

	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, role.User, msg.Role)
	assert.Len(t, msg.Parts, 2)
}

func TestNewText(t *testing.T) {
	msg := NewText("m2", role.Assistant, "hi there")

	assert.Equal(t, role.Assistant, msg.Role)
	assert.Len(t, msg.Parts, 1)
	assert.Equal(t, "hi there", msg.Parts[0].(content.Text).Text)
}

func TestMessage_TextContent(t *testing.T) {
	msg := New("m1", role.User,
		content.Text{Text: "hello "},
		content.Reasoning{Text: "ignored"},
		content.Text{Text: "world"},
	)

	assert.Equal(t, "hello world", msg.TextContent())
}

func TestMessage_ToolInvocations(t *testing.T) {
	msg := New("m1", role.Assistant,
		content.Text{Text: "checking"},
		content.ToolInvocation{ID: "a", Name: "getAccount"},
		content.ToolInvocation{ID: "b", Name: "getTransaction"},
	)

	invs := msg.ToolInvocations()
	assert.Len(t, invs, 2)
	assert.Equal(t, "b", invs[1].ID)
}

func TestMessage_AppendTextMerges(t *testing.T) {
	var msg Message
	msg.AppendText("Hel")
	msg.AppendText("lo")
	msg.AppendReasoning("hmm")
	msg.AppendReasoning(" ok")
	msg.AppendText("!")

	assert.Equal(t, []content.Part{
		content.Text{Text: "Hello"},
		content.Reasoning{Text: "hmm ok"},
		content.Text{Text: "!"},
	}, msg.Parts)
}
