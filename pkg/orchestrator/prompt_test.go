package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt("", "")
	assert.True(t, strings.HasPrefix(p, DefaultInstructions))
	assert.Contains(t, p, "getStacksKnowledge")
	assert.NotContains(t, p, "CONNECTED WALLET")

	p = SystemPrompt("Be brief.", " SP3K8BC0PPEVCV7NZ6QSRWPQ2JE9E5B6N3PA0KBR9 ")
	assert.True(t, strings.HasPrefix(p, "Be brief."))
	assert.Contains(t, p, "CONNECTED WALLET: SP3K8BC0PPEVCV7NZ6QSRWPQ2JE9E5B6N3PA0KBR9\n")
	assert.Contains(t, p, `You MUST pass "SP3K8BC0PPEVCV7NZ6QSRWPQ2JE9E5B6N3PA0KBR9" as the address parameter to the getAccount tool`)
	assert.Contains(t, p, `call getAccount with address="SP3K8BC0PPEVCV7NZ6QSRWPQ2JE9E5B6N3PA0KBR9"`)
}
