package uistream

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/blasko/pkg/chats/content"
	"github.com/germanamz/blasko/pkg/chats/message"
	"github.com/germanamz/blasko/pkg/chats/role"
)

func TestToMessages(t *testing.T) {
	body := `{
		"id": "conv-1",
		"walletAddress": "SP000000000000000000002Q6VF78",
		"messages": [
			{"id": "u1", "role": "user", "parts": [{"type": "text", "text": "send 1 STX"}]},
			{"id": "a1", "role": "assistant", "parts": [
				{"type": "step-start"},
				{"type": "text", "text": "preparing"},
				{"type": "tool-sendToken", "toolCallId": "c1", "state": "output-available",
				 "input": {"amount": "1"}, "output": {"amount": "1"}}
			]},
			{"id": "u2", "role": "user", "parts": [
				{"type": "wallet-result", "toolCallId": "c1", "status": "success", "txId": "0xabc"}
			]}
		]
	}`

	var req Request
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.Equal(t, "SP000000000000000000002Q6VF78", req.WalletAddress)

	msgs, err := ToMessages(req.Messages)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, role.User, msgs[0].Role)
	assert.Equal(t, "send 1 STX", msgs[0].TextContent())

	require.Len(t, msgs[1].Parts, 2)
	invs := msgs[1].ToolInvocations()
	require.Len(t, invs, 1)
	assert.Equal(t, "sendToken", invs[0].Name)
	assert.Equal(t, content.StateOutputAvailable, invs[0].State)

	wr, ok := msgs[2].Parts[0].(content.WalletResult)
	require.True(t, ok)
	assert.Equal(t, content.WalletSuccess, wr.Status)
	assert.Equal(t, "0xabc", wr.TxID)
}

func TestToMessages_Errors(t *testing.T) {
	_, err := ToMessages([]UIMessage{{ID: "s", Role: "system"}})
	assert.ErrorContains(t, err, "unsupported role")

	_, err = ToMessages([]UIMessage{{ID: "a", Role: "assistant", Parts: []UIPart{{Type: "tool-x", State: "bogus"}}}})
	assert.ErrorContains(t, err, "unknown tool state")

	_, err = ToMessages([]UIMessage{{ID: "u", Role: "user", Parts: []UIPart{{Type: "wallet-result", Status: "maybe"}}}})
	assert.ErrorContains(t, err, "unknown wallet status")
}

func TestFromMessage_RoundTrip(t *testing.T) {
	inv := content.NewInvocation(content.ToolCall{ID: "c1", Name: "getAccount", Arguments: `{"address":"SP1"}`})
	require.NoError(t, inv.Resolve(json.RawMessage(`{"balance":"1"}`)))

	msg := message.New("a1", role.Assistant,
		content.Reasoning{Text: "thinking"},
		content.Text{Text: "here"},
		content.Source{ID: "s1", URL: "https://docs.stacks.co"},
		inv,
	)

	ui := FromMessage(msg)
	assert.Equal(t, "tool-getAccount", ui.Parts[3].Type)

	back, err := ToMessages([]UIMessage{ui})
	require.NoError(t, err)
	assert.Equal(t, msg.Parts, back[0].Parts)
}

func TestToolOutput(t *testing.T) {
	inv := content.NewInvocation(content.ToolCall{ID: "c1", Name: "getAccount"})
	require.NoError(t, inv.Fail("upstream down", "upstream"))

	c := ToolOutput(inv)
	assert.Equal(t, ChunkToolOutputError, c.Type)
	assert.Equal(t, "upstream", c.ErrorKind)

	ok := content.NewInvocation(content.ToolCall{ID: "c2", Name: "getAccount"})
	require.NoError(t, ok.Resolve(json.RawMessage(`{}`)))
	assert.Equal(t, ChunkToolOutputAvailable, ToolOutput(ok).Type)
}

func TestReadChunks(t *testing.T) {
	stream := "data: {\"type\":\"start\",\"messageId\":\"m1\"}\n\n" +
		"data: {\"type\":\"text-delta\",\"id\":\"t0\",\"delta\":\"hi\"}\n\n" +
		"data: {\"type\":\"finish\"}\n\n" +
		"data: [DONE]\n\n"

	var got []Chunk
	require.NoError(t, ReadChunks(strings.NewReader(stream), func(c Chunk) error {
		got = append(got, c)
		return nil
	}))

	require.Len(t, got, 3)
	assert.Equal(t, Start("m1"), got[0])
	assert.Equal(t, TextDelta("t0", "hi"), got[1])
	assert.Equal(t, ChunkFinish, got[2].Type)
}
