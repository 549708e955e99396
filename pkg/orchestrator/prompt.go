package orchestrator

import (
	"fmt"
	"strings"
)

// DefaultInstructions is the base system prompt.
const DefaultInstructions = "You are a helpful assistant that can answer questions and help with tasks on the Stacks blockchain."

const knowledgeGuidance = `KNOWLEDGE TOOL:
- When users ask "how to", "what is", or conceptual questions about Stacks, use the getStacksKnowledge tool
- The tool will automatically fetch documentation, synthesize an answer, and display it in a card
- You don't need to provide additional explanation - just call the tool and let it handle the response
- The tool covers: stacking, sBTC, Clarity, mining, transactions, BNS, and more`

const walletDirective = `CONNECTED WALLET: %[1]s

WALLET INSTRUCTIONS:
- When the user says "my wallet", "my balance", "my account", or refers to themselves, they mean this address: %[1]s
- You MUST pass "%[1]s" as the address parameter to the getAccount tool
- DO NOT ask the user for their address - you already have it
- Example: If user says "show my balance", immediately call getAccount with address="%[1]s"`

// SystemPrompt composes the system prompt from instructions (DefaultInstructions
// when empty), the knowledge tool guidance and, when walletAddress is set,
// the connected wallet directive.
func SystemPrompt(instructions, walletAddress string) string {
	if strings.TrimSpace(instructions) == "" {
		instructions = DefaultInstructions
	}

	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\n")
	b.WriteString(knowledgeGuidance)

	if w := strings.TrimSpace(walletAddress); w != "" {
		b.WriteString("\n\n")
		fmt.Fprintf(&b, walletDirective, w)
	}

	return b.String()
}
