package transcript

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/blasko/pkg/chats/content"
	"github.com/germanamz/blasko/pkg/chats/role"
	"github.com/germanamz/blasko/pkg/uistream"
)

func sendTokenStream() []uistream.Chunk {
	inv := content.ToolInvocation{
		ID:    "call_1",
		Name:  "sendToken",
		State: content.StateInputAvailable,
		Input: json.RawMessage(`{"amount":"1","recipient":"SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"}`),
	}
	done := inv
	done.State = content.StateOutputAvailable
	done.Output = json.RawMessage(`{"amount":"1"}`)

	return []uistream.Chunk{
		uistream.Start("m1"),
		uistream.StartStep(),
		uistream.ReasoningDelta("r1", "the user wants "),
		uistream.ReasoningDelta("r1", "to send"),
		uistream.ToolInput(inv),
		uistream.ToolOutput(done),
		uistream.FinishStep(),
		uistream.StartStep(),
		uistream.TextDelta("t1", "Please confirm "),
		uistream.TextDelta("t1", "in your wallet."),
		uistream.FinishStep(),
		uistream.Finish("stop"),
	}
}

func TestBuilder(t *testing.T) {
	b := NewBuilder()
	for _, c := range sendTokenStream() {
		b.Apply(c)
	}

	assert.True(t, b.Done())
	assert.Equal(t, "stop", b.FinishReason)
	assert.Equal(t, "Please confirm in your wallet.", b.Text())
	assert.Equal(t, "the user wants to send", b.Reasoning())

	calls := b.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "sendToken", calls[0].Name)
	assert.Equal(t, "output-available", calls[0].State)
	assert.JSONEq(t, `{"amount":"1"}`, calls[0].Output)

	msg := b.Message()
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "assistant", msg.Role)
}

func TestBuilder_ToolErrorAndAbort(t *testing.T) {
	b := NewBuilder()
	b.Apply(uistream.Start("m1"))
	b.Apply(uistream.Chunk{Type: uistream.ChunkToolInputAvailable, ToolCallID: "c1", ToolName: "getAccount", Input: json.RawMessage(`{}`)})
	b.Apply(uistream.Chunk{Type: uistream.ChunkToolOutputError, ToolCallID: "c1", ErrorText: "bad address", ErrorKind: "invalid_input"})
	b.Apply(uistream.Chunk{Type: uistream.ChunkToolInputAvailable, ToolCallID: "c2", ToolName: "getContract", Input: json.RawMessage(`{}`)})
	b.Apply(uistream.Abort(""))

	assert.True(t, b.Done())
	assert.Equal(t, "aborted", b.AbortReason)

	calls := b.ToolCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "output-error", calls[0].State)
	assert.Equal(t, "invalid_input", calls[0].ErrorKind)

	// The unresolved call is left out of the replayable message.
	msg := b.Message()
	require.Len(t, msg.Parts, 1)
	assert.Equal(t, "c1", msg.Parts[0].ToolCallID)
}

func TestBuilder_EmptyMessage(t *testing.T) {
	b := NewBuilder()
	b.Apply(uistream.Start("m1"))
	b.Apply(uistream.StartStep())
	b.Apply(uistream.Error("model: boom"))

	assert.Equal(t, "model: boom", b.ErrorText)
	assert.Empty(t, b.Message().Parts)

	tr := New()
	tr.Commit(b)
	assert.Empty(t, tr.Messages)
}

func TestTranscript_HistoryRoundTripsThroughServerConversion(t *testing.T) {
	tr := New()
	tr.AddUser("send 1 STX to my friend")

	b := NewBuilder()
	for _, c := range sendTokenStream() {
		b.Apply(c)
	}
	tr.Commit(b)

	assert.Equal(t, []string{"call_1"}, tr.Unresolved())

	id, ok := tr.AddWalletResult("success", "0xabc")
	require.True(t, ok)
	assert.Equal(t, "call_1", id)
	assert.Empty(t, tr.Unresolved())

	req := tr.Request("SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7")
	assert.Equal(t, tr.ID, req.ID)
	require.Len(t, req.Messages, 3)

	msgs, err := uistream.ToMessages(req.Messages)
	require.NoError(t, err)
	assert.Equal(t, role.User, msgs[0].Role)
	assert.Equal(t, role.Assistant, msgs[1].Role)

	wr, ok := msgs[2].Parts[0].(content.WalletResult)
	require.True(t, ok)
	assert.Equal(t, content.WalletSuccess, wr.Status)
	assert.Equal(t, "0xabc", wr.TxID)
}

func TestTranscript_WalletResultWithoutPending(t *testing.T) {
	tr := New()
	_, ok := tr.AddWalletResult("rejected", "")
	assert.False(t, ok)
	assert.Empty(t, tr.Messages)
}

func TestTranscript_Reset(t *testing.T) {
	tr := New()
	id := tr.ID
	tr.AddUser("hello")
	tr.Reset()

	assert.NotEqual(t, id, tr.ID)
	assert.Empty(t, tr.Messages)
}

func TestIsWalletTool(t *testing.T) {
	assert.True(t, IsWalletTool("swapToken"))
	assert.False(t, IsWalletTool("getAccount"))
}
