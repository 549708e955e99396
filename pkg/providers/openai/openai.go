// Package openai provides a streaming modeladapter.Streamer for the OpenAI
// Chat Completions API and compatible endpoints (xAI Grok, OpenRouter, local
// servers), built on the official openai-go client.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/germanamz/blasko/pkg/chats/chat"
	"github.com/germanamz/blasko/pkg/chats/content"
	"github.com/germanamz/blasko/pkg/chats/message"
	"github.com/germanamz/blasko/pkg/chats/role"
	"github.com/germanamz/blasko/pkg/modeladapter"
	"github.com/germanamz/blasko/pkg/modeladapter/usage"
	"github.com/germanamz/blasko/pkg/tools/toolbox"
)

// DefaultBaseURL is the public OpenAI endpoint, without the /v1 suffix.
const DefaultBaseURL = "https://api.openai.com"

var _ modeladapter.Streamer = (*Adapter)(nil)

// Adapter implements modeladapter.Streamer for the Chat Completions API.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter. The baseURL has no trailing "/v1".
func New(baseURL, apiKey, model string) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	a := &Adapter{
		ModelAdapter: modeladapter.New(baseURL, modeladapter.Auth{Key: apiKey}, nil),
	}
	a.Name = model
	a.MaxTokens = 4096
	a.HeaderParser = modeladapter.ParseOpenAIRateLimitHeaders

	return a
}

func (a *Adapter) client() openai.Client {
	opts := []option.RequestOption{
		option.WithBaseURL(a.BaseURL + "/v1/"),
		option.WithAPIKey(a.Auth.Key),
		// Retries are handled by modeladapter.RateLimitedStreamer.
		option.WithMaxRetries(0),
		option.WithMiddleware(func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
			resp, err := next(req)
			if err == nil && resp.StatusCode < 300 {
				a.ObserveHeaders(resp.Header)
			}
			return resp, err
		}),
	}
	if a.Client != nil {
		opts = append(opts, option.WithHTTPClient(a.Client))
	}
	for k, v := range a.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	return openai.NewClient(opts...)
}

// Stream sends the conversation and delivers the reply as events. Tool
// calls are emitted once their arguments are complete.
func (a *Adapter) Stream(ctx context.Context, c *chat.Chat, tools []toolbox.Tool, fn modeladapter.StreamFunc) error {
	client := a.client()
	stream := client.Chat.Completions.NewStreaming(ctx, a.buildParams(c, tools))
	defer func() { _ = stream.Close() }()

	acc := openai.ChatCompletionAccumulator{}
	emitted := make(map[int]bool)

	emitCall := func(index int, id, name, args string) error {
		if emitted[index] {
			return nil
		}
		emitted[index] = true
		if strings.TrimSpace(args) == "" {
			args = "{}"
		}
		return fn(modeladapter.StreamEvent{
			Kind:     modeladapter.EventToolCall,
			ToolCall: content.ToolCall{ID: id, Name: name, Arguments: args},
		})
	}

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if tc, ok := acc.JustFinishedToolCall(); ok {
			if err := emitCall(tc.Index, tc.ID, tc.Name, tc.Arguments); err != nil {
				return err
			}
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta

		if r := reasoningDelta(delta); r != "" {
			if err := fn(modeladapter.StreamEvent{Kind: modeladapter.EventReasoningDelta, Text: r}); err != nil {
				return err
			}
		}

		if delta.Content != "" {
			if err := fn(modeladapter.StreamEvent{Kind: modeladapter.EventTextDelta, Text: delta.Content}); err != nil {
				return err
			}
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("openai: %w", mapError(err))
	}

	var finish string
	if len(acc.Choices) > 0 {
		choice := acc.Choices[0]
		finish = choice.FinishReason
		for i, tc := range choice.Message.ToolCalls {
			if err := emitCall(i, tc.ID, tc.Function.Name, tc.Function.Arguments); err != nil {
				return err
			}
		}
	}

	tokens := usage.TokenCount{
		InputTokens:  int(acc.Usage.PromptTokens),
		OutputTokens: int(acc.Usage.CompletionTokens),
	}
	a.Usage.Add(tokens)

	return fn(modeladapter.StreamEvent{
		Kind:         modeladapter.EventFinish,
		FinishReason: mapFinishReason(finish, len(emitted) > 0),
		Usage:        tokens,
	})
}

// reasoningDelta extracts reasoning text that OpenAI-compatible servers
// put in a non-standard "reasoning" or "reasoning_content" delta field.
func reasoningDelta(delta openai.ChatCompletionChunkChoiceDelta) string {
	for _, key := range []string{"reasoning", "reasoning_content"} {
		field, ok := delta.JSON.ExtraFields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal([]byte(field.Raw()), &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

// mapError turns an API 429 into a modeladapter.RateLimitError so the
// rate limiter can retry it.
func mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		rle := &modeladapter.RateLimitError{Body: apiErr.Message}
		if apiErr.Response != nil {
			rle.RetryAfter = modeladapter.ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		return rle
	}
	return err
}

func mapFinishReason(reason string, sawToolCall bool) string {
	if sawToolCall {
		return "tool-calls"
	}

	switch reason {
	case "", "stop":
		return "stop"
	case "length":
		return "length"
	case "content_filter":
		return "content-filter"
	case "tool_calls", "function_call":
		return "tool-calls"
	}
	return "other"
}

// --- conversion helpers ---

func (a *Adapter) buildParams(c *chat.Chat, tools []toolbox.Tool) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.Name),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}

	if a.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(a.MaxTokens))
	}
	if a.Temperature != 0 {
		params.Temperature = openai.Float(a.Temperature)
	}

	for _, t := range tools {
		var schema map[string]any
		_ = json.Unmarshal(t.SchemaJSON(), &schema)

		params.Tools = append(params.Tools, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  shared.FunctionParameters(schema),
				},
			},
		})
	}

	if sp := c.SystemPrompt(); sp != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(sp))
	}

	for _, m := range c.Messages() {
		switch m.Role {
		case role.System:
			continue
		case role.Assistant:
			params.Messages = append(params.Messages, assistantMessages(m)...)
		default:
			if text := m.TextContent(); text != "" {
				params.Messages = append(params.Messages, openai.UserMessage(text))
			}
		}
	}

	return params
}

// assistantMessages converts an assistant message into an assistant param
// carrying its text and tool calls, followed by one tool message per
// terminal invocation.
func assistantMessages(m message.Message) []openai.ChatCompletionMessageParamUnion {
	var (
		asst    openai.ChatCompletionAssistantMessageParam
		results []openai.ChatCompletionMessageParamUnion
	)

	if text := m.TextContent(); text != "" {
		asst.Content.OfString = openai.String(text)
	}

	for _, inv := range m.ToolInvocations() {
		if !inv.State.Terminal() {
			continue
		}

		asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: inv.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      inv.Name,
					Arguments: string(inv.Input),
				},
			},
		})
		results = append(results, openai.ToolMessage(toolResult(inv), inv.ID))
	}

	if len(asst.ToolCalls) == 0 && !asst.Content.OfString.Valid() {
		return nil
	}

	return append([]openai.ChatCompletionMessageParamUnion{{OfAssistant: &asst}}, results...)
}

func toolResult(inv content.ToolInvocation) string {
	if inv.State == content.StateOutputError {
		b, _ := json.Marshal(map[string]string{"error": inv.ErrorText, "kind": inv.ErrorKind})
		return string(b)
	}
	if len(inv.Output) == 0 {
		return "null"
	}
	return string(inv.Output)
}
