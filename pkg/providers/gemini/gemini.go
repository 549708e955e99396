// Package gemini provides a streaming modeladapter.Streamer for the Google
// Gemini API.
package gemini

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/germanamz/blasko/pkg/chats/chat"
	"github.com/germanamz/blasko/pkg/chats/content"
	"github.com/germanamz/blasko/pkg/chats/message"
	"github.com/germanamz/blasko/pkg/chats/role"
	"github.com/germanamz/blasko/pkg/modeladapter"
	"github.com/germanamz/blasko/pkg/modeladapter/usage"
	"github.com/germanamz/blasko/pkg/sse"
	"github.com/germanamz/blasko/pkg/tools/toolbox"
)

// DefaultBaseURL is the public Gemini endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

var _ modeladapter.Streamer = (*Adapter)(nil)

// Adapter implements modeladapter.Streamer for the Google Gemini API.
type Adapter struct {
	modeladapter.ModelAdapter

	// IncludeThoughts asks thinking models to return thought summaries,
	// which are delivered as reasoning deltas.
	IncludeThoughts bool
}

// New creates an Adapter configured for the Gemini API.
func New(baseURL, apiKey, model string) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	a := &Adapter{
		ModelAdapter: modeladapter.New(baseURL, modeladapter.Auth{
			Key:    apiKey,
			Header: "x-goog-api-key",
		}, nil),
		IncludeThoughts: true,
	}
	a.Name = model
	a.MaxTokens = 8192

	// Gemini does not return rate limit headers, so HeaderParser stays unset
	// and throttling is proactive only.

	return a
}

// Stream sends the conversation to streamGenerateContent and delivers the
// reply as events.
func (a *Adapter) Stream(ctx context.Context, c *chat.Chat, tools []toolbox.Tool, fn modeladapter.StreamFunc) error {
	req := a.buildRequest(c, tools)
	path := fmt.Sprintf("/v1beta/models/%s:streamGenerateContent?alt=sse", a.Name)

	resp, err := a.PostStream(ctx, path, req)
	if err != nil {
		return fmt.Errorf("gemini: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	st := &streamState{fn: fn, seenSources: make(map[string]bool)}
	if err := sse.Each(resp.Body, st.handle); err != nil {
		return fmt.Errorf("gemini: %w", err)
	}

	a.Usage.Add(st.usage)

	return fn(modeladapter.StreamEvent{
		Kind:         modeladapter.EventFinish,
		FinishReason: st.finishReason(),
		Usage:        st.usage,
	})
}

// --- request types ---

type apiRequest struct {
	Contents          []apiContent     `json:"contents"`
	SystemInstruction *apiContent      `json:"systemInstruction,omitempty"`
	Tools             []apiToolSet     `json:"tools,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type apiContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []apiPart `json:"parts"`
}

type apiPart struct {
	Text             string           `json:"text,omitempty"`
	Thought          bool             `json:"thought,omitempty"`
	FunctionCall     *apiFunctionCall `json:"functionCall,omitempty"`
	FunctionResponse *apiFunctionResp `json:"functionResponse,omitempty"`
	ThoughtSignature string           `json:"thoughtSignature,omitempty"`
}

type apiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type apiFunctionResp struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response"`
}

type apiToolSet struct {
	FunctionDeclarations []apiFuncDecl `json:"functionDeclarations"`
}

type apiFuncDecl struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type thinkingConfig struct {
	IncludeThoughts bool `json:"includeThoughts"`
}

type generationConfig struct {
	Temperature     *float64        `json:"temperature,omitempty"`
	MaxOutputTokens int             `json:"maxOutputTokens"`
	ThinkingConfig  *thinkingConfig `json:"thinkingConfig,omitempty"`
}

// --- response types ---

type apiResponse struct {
	Candidates    []apiCandidate `json:"candidates"`
	UsageMetadata apiUsageMeta   `json:"usageMetadata"`
}

type apiCandidate struct {
	Content           apiContent         `json:"content"`
	FinishReason      string             `json:"finishReason"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata,omitempty"`
}

type groundingMetadata struct {
	GroundingChunks []groundingChunk `json:"groundingChunks"`
}

type groundingChunk struct {
	Web *struct {
		URI   string `json:"uri"`
		Title string `json:"title"`
	} `json:"web,omitempty"`
}

type apiUsageMeta struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	ThoughtsTokenCount   int `json:"thoughtsTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// --- streaming ---

type streamState struct {
	fn          modeladapter.StreamFunc
	usage       usage.TokenCount
	finish      string
	sawToolCall bool
	seenSources map[string]bool
}

func (s *streamState) handle(ev sse.Event) error {
	var chunk apiResponse
	if err := json.Unmarshal(ev.Data, &chunk); err != nil {
		return fmt.Errorf("decode chunk: %w", err)
	}

	// usageMetadata is cumulative; the last chunk wins.
	if chunk.UsageMetadata.TotalTokenCount > 0 {
		s.usage = usage.TokenCount{
			InputTokens:  chunk.UsageMetadata.PromptTokenCount,
			OutputTokens: chunk.UsageMetadata.CandidatesTokenCount + chunk.UsageMetadata.ThoughtsTokenCount,
		}
	}

	if len(chunk.Candidates) == 0 {
		return nil
	}
	cand := chunk.Candidates[0]

	for _, p := range cand.Content.Parts {
		if err := s.handlePart(p); err != nil {
			return err
		}
	}

	if cand.GroundingMetadata != nil {
		for _, gc := range cand.GroundingMetadata.GroundingChunks {
			if gc.Web == nil || gc.Web.URI == "" || s.seenSources[gc.Web.URI] {
				continue
			}
			s.seenSources[gc.Web.URI] = true
			src := content.Source{
				ID:    fmt.Sprintf("src_%d", len(s.seenSources)),
				URL:   gc.Web.URI,
				Title: gc.Web.Title,
			}
			if err := s.fn(modeladapter.StreamEvent{Kind: modeladapter.EventSource, Source: src}); err != nil {
				return err
			}
		}
	}

	if cand.FinishReason != "" {
		s.finish = cand.FinishReason
	}

	return nil
}

func (s *streamState) handlePart(p apiPart) error {
	switch {
	case p.FunctionCall != nil:
		s.sawToolCall = true
		args := p.FunctionCall.Args
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		tc := content.ToolCall{
			ID:        generateCallID(p.FunctionCall.Name),
			Name:      p.FunctionCall.Name,
			Arguments: string(args),
		}
		if p.ThoughtSignature != "" {
			tc.Metadata = map[string]string{"thoughtSignature": p.ThoughtSignature}
		}
		return s.fn(modeladapter.StreamEvent{Kind: modeladapter.EventToolCall, ToolCall: tc})
	case p.Thought && p.Text != "":
		return s.fn(modeladapter.StreamEvent{Kind: modeladapter.EventReasoningDelta, Text: p.Text})
	case p.Text != "":
		return s.fn(modeladapter.StreamEvent{Kind: modeladapter.EventTextDelta, Text: p.Text})
	}
	return nil
}

func (s *streamState) finishReason() string {
	if s.sawToolCall {
		return "tool-calls"
	}

	switch s.finish {
	case "", "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII":
		return "content-filter"
	}
	return "other"
}

// --- conversion helpers ---

func (a *Adapter) buildRequest(c *chat.Chat, tools []toolbox.Tool) apiRequest {
	req := apiRequest{
		GenerationConfig: generationConfig{
			MaxOutputTokens: a.MaxTokens,
		},
	}

	if a.Temperature != 0 {
		t := a.Temperature
		req.GenerationConfig.Temperature = &t
	}

	if a.IncludeThoughts {
		req.GenerationConfig.ThinkingConfig = &thinkingConfig{IncludeThoughts: true}
	}

	if len(tools) > 0 {
		decls := make([]apiFuncDecl, len(tools))
		for i, t := range tools {
			decls[i] = apiFuncDecl{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  sanitizeSchema(t.SchemaJSON()),
			}
		}
		req.Tools = []apiToolSet{{FunctionDeclarations: decls}}
	}

	if sp := c.SystemPrompt(); sp != "" {
		req.SystemInstruction = &apiContent{Parts: []apiPart{{Text: sp}}}
	}

	for _, m := range c.Messages() {
		if m.Role == role.System {
			continue
		}
		appendMessage(&req.Contents, m)
	}

	return req
}

// appendMessage converts m into Gemini contents. Terminal tool invocations
// on an assistant message become a functionCall in the model turn followed
// by a functionResponse in a user turn.
func appendMessage(contents *[]apiContent, m message.Message) {
	var responses []apiPart

	for _, p := range m.Parts {
		switch v := p.(type) {
		case content.Text:
			if v.Text != "" {
				appendPart(contents, mapRole(m.Role), apiPart{Text: v.Text})
			}
		case content.ToolCall:
			appendPart(contents, "model", functionCallPart(v))
		case content.ToolInvocation:
			if !v.State.Terminal() {
				continue
			}
			appendPart(contents, "model", functionCallPart(v.Call()))
			responses = append(responses, apiPart{
				FunctionResponse: &apiFunctionResp{
					Name:     v.Name,
					Response: functionResponse(v),
				},
			})
		}
	}

	for _, r := range responses {
		appendPart(contents, "user", r)
	}
}

// appendPart merges into the last content if it has the same role, since
// Gemini requires alternating turns.
func appendPart(contents *[]apiContent, apiRole string, part apiPart) {
	if n := len(*contents); n > 0 && (*contents)[n-1].Role == apiRole {
		(*contents)[n-1].Parts = append((*contents)[n-1].Parts, part)
		return
	}

	*contents = append(*contents, apiContent{Role: apiRole, Parts: []apiPart{part}})
}

func functionCallPart(tc content.ToolCall) apiPart {
	args := json.RawMessage(tc.Arguments)
	if len(args) == 0 || !json.Valid(args) {
		args = json.RawMessage(`{}`)
	}

	part := apiPart{FunctionCall: &apiFunctionCall{Name: tc.Name, Args: args}}
	if sig := tc.Metadata["thoughtSignature"]; sig != "" {
		part.ThoughtSignature = sig
	}
	return part
}

// functionResponse wraps an invocation outcome into the JSON object Gemini
// expects in functionResponse.response.
func functionResponse(inv content.ToolInvocation) json.RawMessage {
	if inv.State == content.StateOutputError {
		b, _ := json.Marshal(map[string]string{"error": inv.ErrorText, "kind": inv.ErrorKind})
		return b
	}
	return marshalFunctionResponse(inv.Output)
}

// marshalFunctionResponse wraps tool output as {"result": <json>}. Output
// that is not valid JSON is encoded as a string.
func marshalFunctionResponse(out json.RawMessage) json.RawMessage {
	if len(out) > 0 && json.Valid(out) {
		return json.RawMessage(`{"result":` + string(out) + `}`)
	}
	b, _ := json.Marshal(string(out))
	return json.RawMessage(`{"result":` + string(b) + `}`)
}

// sanitizeSchema removes JSON Schema keywords that the Gemini API does not
// support. It operates recursively so nested schemas are also cleaned.
func sanitizeSchema(raw json.RawMessage) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw
	}

	delete(obj, "$schema")
	delete(obj, "$id")
	delete(obj, "additionalProperties")

	if props, ok := obj["properties"]; ok {
		var propMap map[string]json.RawMessage
		if err := json.Unmarshal(props, &propMap); err == nil {
			for k, v := range propMap {
				propMap[k] = sanitizeSchema(v)
			}
			if b, err := json.Marshal(propMap); err == nil {
				obj["properties"] = b
			}
		}
	}

	if items, ok := obj["items"]; ok {
		obj["items"] = sanitizeSchema(items)
	}

	b, err := json.Marshal(obj)
	if err != nil {
		return raw
	}
	return b
}

func mapRole(r role.Role) string {
	if r == role.Assistant {
		return "model"
	}
	return "user"
}

// generateCallID creates a unique tool call ID. Gemini does not return call
// IDs, so they are synthesized.
func generateCallID(name string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("call_%s_%s", name, hex.EncodeToString(b))
}
