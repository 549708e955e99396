// Package transcript keeps the client-side conversation. The server is
// stateless, so the client resends the full history with every request.
package transcript

import (
	"strings"

	"github.com/google/uuid"

	"github.com/germanamz/blasko/pkg/uistream"
)

// walletTools describe transactions the user signs in a wallet.
var walletTools = map[string]bool{
	"sendToken":   true,
	"multiSend":   true,
	"swapToken":   true,
	"stackStx":    true,
	"registerBNS": true,
	"bridgeToken": true,
}

// IsWalletTool reports whether a tool's output is a transaction to sign.
func IsWalletTool(name string) bool { return walletTools[name] }

// Transcript is the history of one conversation.
type Transcript struct {
	ID       string
	Messages []uistream.UIMessage

	// Wallet tool calls the user has not reported a result for, oldest first.
	unresolved []string
}

// New starts an empty conversation with a random id.
func New() *Transcript {
	return &Transcript{ID: uuid.NewString()}
}

// AddUser appends a user text message.
func (t *Transcript) AddUser(text string) {
	t.Messages = append(t.Messages, uistream.UIMessage{
		ID:    uuid.NewString(),
		Role:  "user",
		Parts: []uistream.UIPart{{Type: "text", Text: text}},
	})
}

// AddWalletResult appends a user message reporting the outcome of the oldest
// unresolved wallet tool call. ok is false when there is none.
func (t *Transcript) AddWalletResult(status, detail string) (toolCallID string, ok bool) {
	if len(t.unresolved) == 0 {
		return "", false
	}
	toolCallID, t.unresolved = t.unresolved[0], t.unresolved[1:]

	part := uistream.UIPart{Type: "wallet-result", ToolCallID: toolCallID, Status: status}
	if status == "success" {
		part.TxID = detail
	} else {
		part.Error = detail
	}

	t.Messages = append(t.Messages, uistream.UIMessage{
		ID:    uuid.NewString(),
		Role:  "user",
		Parts: []uistream.UIPart{part},
	})
	return toolCallID, true
}

// Unresolved returns the wallet tool calls awaiting a result.
func (t *Transcript) Unresolved() []string {
	return append([]string(nil), t.unresolved...)
}

// Request builds the request for the current history.
func (t *Transcript) Request(walletAddress string) uistream.Request {
	return uistream.Request{
		ID:            t.ID,
		Messages:      append([]uistream.UIMessage(nil), t.Messages...),
		WalletAddress: walletAddress,
	}
}

// Commit appends the assistant message assembled by b. Empty messages are
// dropped.
func (t *Transcript) Commit(b *Builder) {
	msg := b.Message()
	if len(msg.Parts) == 0 {
		return
	}
	t.Messages = append(t.Messages, msg)

	for _, p := range msg.Parts {
		name, isTool := strings.CutPrefix(p.Type, "tool-")
		if isTool && p.State == "output-available" && IsWalletTool(name) {
			t.unresolved = append(t.unresolved, p.ToolCallID)
		}
	}
}

// Reset clears the history and starts a new conversation id.
func (t *Transcript) Reset() {
	t.ID = uuid.NewString()
	t.Messages = nil
	t.unresolved = nil
}
