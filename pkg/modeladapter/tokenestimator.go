package modeladapter

import (
	"github.com/germanamz/blasko/pkg/chats/chat"
	"github.com/germanamz/blasko/pkg/chats/content"
	"github.com/germanamz/blasko/pkg/chats/role"
	"github.com/germanamz/blasko/pkg/tools/toolbox"
)

// perMessageOverhead is the estimated token overhead for each message.
const perMessageOverhead = 4

// perToolOverhead is the estimated token overhead for each tool definition.
const perToolOverhead = 10

// TokenEstimator estimates token counts with a 1-token-per-4-characters
// heuristic. The zero value is ready to use.
type TokenEstimator struct{}

func charsToTokens(chars int) int {
	return (chars + 3) / 4 // round up
}

// EstimateChat estimates the input tokens for a conversation, including the
// system prompt, text, reasoning, tool invocations and wallet results.
func (e *TokenEstimator) EstimateChat(c *chat.Chat) int {
	tokens := 0

	if sp := c.SystemPrompt(); sp != "" {
		tokens += charsToTokens(len(sp)) + perMessageOverhead
	}

	for _, m := range c.Messages() {
		if m.Role == role.System {
			continue
		}

		tokens += perMessageOverhead

		for _, p := range m.Parts {
			switch v := p.(type) {
			case content.Text:
				tokens += charsToTokens(len(v.Text))
			case content.Reasoning:
				tokens += charsToTokens(len(v.Text))
			case content.ToolCall:
				tokens += charsToTokens(len(v.ID) + len(v.Name) + len(v.Arguments))
			case content.ToolInvocation:
				tokens += charsToTokens(len(v.ID) + len(v.Name) + len(v.Input) + len(v.Output) + len(v.ErrorText))
			case content.WalletResult:
				tokens += charsToTokens(len(v.ToolCallID) + len(v.TxID) + len(v.Error) + len(v.Status))
			}
		}
	}

	return tokens
}

// EstimateTools estimates the token cost of tool definitions.
func (e *TokenEstimator) EstimateTools(tools []toolbox.Tool) int {
	tokens := 0

	for _, t := range tools {
		chars := len(t.Name) + len(t.Description) + len(t.SchemaJSON())
		tokens += charsToTokens(chars) + perToolOverhead
	}

	return tokens
}

// EstimateTotal estimates total input tokens for a conversation combined
// with tool definitions.
func (e *TokenEstimator) EstimateTotal(c *chat.Chat, tools []toolbox.Tool) int {
	return e.EstimateChat(c) + e.EstimateTools(tools)
}
