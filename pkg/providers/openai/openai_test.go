package openai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/blasko/pkg/chats/chat"
	"github.com/germanamz/blasko/pkg/chats/content"
	"github.com/germanamz/blasko/pkg/chats/message"
	"github.com/germanamz/blasko/pkg/chats/role"
	"github.com/germanamz/blasko/pkg/modeladapter"
	"github.com/germanamz/blasko/pkg/providers/openai"
	"github.com/germanamz/blasko/pkg/tools/toolbox"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *openai.Adapter) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := openai.New(srv.URL, "sk-test", "gpt-test")
	a.Client = srv.Client()

	return srv, a
}

func chunk(delta map[string]any, finish string) map[string]any {
	choice := map[string]any{"index": 0, "delta": delta}
	if finish != "" {
		choice["finish_reason"] = finish
	}
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion.chunk",
		"created": 1,
		"model":   "gpt-test",
		"choices": []any{choice},
	}
}

func usageChunk(prompt, completion int) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion.chunk",
		"created": 1,
		"model":   "gpt-test",
		"choices": []any{},
		"usage": map[string]any{
			"prompt_tokens":     prompt,
			"completion_tokens": completion,
			"total_tokens":      prompt + completion,
		},
	}
}

func writeSSE(t *testing.T, w http.ResponseWriter, chunks ...any) {
	t.Helper()

	w.Header().Set("Content-Type", "text/event-stream")
	for _, c := range chunks {
		b, err := json.Marshal(c)
		if err != nil {
			t.Errorf("failed to encode chunk: %v", err)
			return
		}
		_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
	}
	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
}

func readBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	var req map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}
	return req
}

func collect(t *testing.T, a *openai.Adapter, c *chat.Chat, tools []toolbox.Tool) []modeladapter.StreamEvent {
	t.Helper()

	var got []modeladapter.StreamEvent
	err := a.Stream(context.Background(), c, tools, func(ev modeladapter.StreamEvent) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)
	return got
}

func TestStream_TextAndReasoning(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		req := readBody(t, r)
		assert.Equal(t, "gpt-test", req["model"])
		assert.Equal(t, true, req["stream"])

		msgs, _ := req["messages"].([]any)
		assert.Len(t, msgs, 2)
		first, _ := msgs[0].(map[string]any)
		assert.Equal(t, "system", first["role"])

		writeSSE(t, w,
			chunk(map[string]any{"role": "assistant", "reasoning": "user greets"}, ""),
			chunk(map[string]any{"content": "Hel"}, ""),
			chunk(map[string]any{"content": "lo"}, ""),
			chunk(map[string]any{}, "stop"),
			usageChunk(12, 3),
		)
	})

	c := chat.New("c", message.NewText("u1", role.User, "Hi"))
	c.SetSystemPrompt("You are helpful.")

	got := collect(t, adapter, c, nil)

	require.Len(t, got, 4)
	assert.Equal(t, modeladapter.StreamEvent{Kind: modeladapter.EventReasoningDelta, Text: "user greets"}, got[0])
	assert.Equal(t, "Hel", got[1].Text)
	assert.Equal(t, "lo", got[2].Text)
	assert.Equal(t, modeladapter.EventFinish, got[3].Kind)
	assert.Equal(t, "stop", got[3].FinishReason)
	assert.Equal(t, 12, got[3].Usage.InputTokens)
	assert.Equal(t, 3, got[3].Usage.OutputTokens)
}

func TestStream_ToolCalls(t *testing.T) {
	tools := []toolbox.Tool{{
		Name:        "getAccount",
		Description: "Look up an account",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Required:   []string{"address"},
			Properties: map[string]*jsonschema.Schema{"address": {Type: "string"}},
		},
	}}

	_, adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)
		declared, _ := req["tools"].([]any)
		assert.Len(t, declared, 1)

		call := func(index int, id, name, args string) map[string]any {
			tc := map[string]any{"index": index, "function": map[string]any{"arguments": args}}
			if id != "" {
				tc["id"] = id
				tc["type"] = "function"
				tc["function"].(map[string]any)["name"] = name
			}
			return chunk(map[string]any{"tool_calls": []any{tc}}, "")
		}

		writeSSE(t, w,
			call(0, "call_a", "getAccount", ""),
			call(0, "", "", `{"address":`),
			call(0, "", "", `"SP1"}`),
			call(1, "call_b", "getAccount", `{"address":"SP2"}`),
			chunk(map[string]any{}, "tool_calls"),
		)
	})

	got := collect(t, adapter, chat.New("c", message.NewText("u1", role.User, "two balances")), tools)

	require.Len(t, got, 3)
	assert.Equal(t, modeladapter.EventToolCall, got[0].Kind)
	assert.Equal(t, "call_a", got[0].ToolCall.ID)
	assert.JSONEq(t, `{"address":"SP1"}`, got[0].ToolCall.Arguments)
	assert.Equal(t, "call_b", got[1].ToolCall.ID)
	assert.JSONEq(t, `{"address":"SP2"}`, got[1].ToolCall.Arguments)
	assert.Equal(t, "tool-calls", got[2].FinishReason)
}

func TestStream_HistoryWithInvocations(t *testing.T) {
	inv := content.NewInvocation(content.ToolCall{ID: "call_a", Name: "getAccount", Arguments: `{"address":"SP1"}`})
	require.NoError(t, inv.Resolve(json.RawMessage(`{"balance":"1"}`)))

	pending := content.NewInvocation(content.ToolCall{ID: "call_b", Name: "getAccount"})

	c := chat.New("c",
		message.NewText("u1", role.User, "balance?"),
		message.New("a1", role.Assistant, content.Text{Text: "Checking"}, inv, pending),
	)

	_, adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)
		msgs, _ := req["messages"].([]any)
		assert.Len(t, msgs, 3)

		asst, _ := msgs[1].(map[string]any)
		assert.Equal(t, "assistant", asst["role"])
		assert.Equal(t, "Checking", asst["content"])
		calls, _ := asst["tool_calls"].([]any)
		assert.Len(t, calls, 1)

		tool, _ := msgs[2].(map[string]any)
		assert.Equal(t, "tool", tool["role"])
		assert.Equal(t, "call_a", tool["tool_call_id"])
		assert.Equal(t, `{"balance":"1"}`, tool["content"])

		writeSSE(t, w, chunk(map[string]any{"content": "ok"}, "stop"))
	})

	got := collect(t, adapter, c, nil)
	assert.Equal(t, "ok", got[0].Text)
}

func TestStream_CapturesRateLimitHeaders(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("x-ratelimit-remaining-requests", "7")
		w.Header().Set("x-ratelimit-remaining-tokens", "900")
		w.Header().Set("x-ratelimit-reset-requests", "6s")
		writeSSE(t, w, chunk(map[string]any{"content": "ok"}, "stop"))
	})

	assert.Nil(t, adapter.LastRateLimitInfo())

	collect(t, adapter, chat.New("c", message.NewText("u1", role.User, "Hi")), nil)

	info := adapter.LastRateLimitInfo()
	require.NotNil(t, info)
	assert.Equal(t, 7, info.RemainingRequests)
	assert.Equal(t, 900, info.RemainingTokens)
	assert.False(t, info.RequestsReset.IsZero())
}

func TestStream_RateLimited(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	})

	err := adapter.Stream(context.Background(), chat.New("c", message.NewText("u", role.User, "hi")), nil,
		func(modeladapter.StreamEvent) error { return nil })

	var rle *modeladapter.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "3s", rle.RetryAfter.String())
}

func TestStream_ServerError(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model"}}`))
	})

	err := adapter.Stream(context.Background(), chat.New("c", message.NewText("u", role.User, "hi")), nil,
		func(modeladapter.StreamEvent) error { return nil })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai:")

	var rle *modeladapter.RateLimitError
	assert.NotErrorAs(t, err, &rle)
}
