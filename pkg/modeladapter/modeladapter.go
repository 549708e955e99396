package modeladapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/germanamz/blasko/pkg/chats/chat"
	"github.com/germanamz/blasko/pkg/chats/content"
	"github.com/germanamz/blasko/pkg/modeladapter/usage"
	"github.com/germanamz/blasko/pkg/tools/toolbox"
)

// RateLimitError is returned when the API responds with HTTP 429 (Too Many Requests).
// It carries an optional RetryAfter duration parsed from the Retry-After header.
type RateLimitError struct {
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, e.Body)
	}
	return fmt.Sprintf("rate limited: %s", e.Body)
}

// StatusError is returned for non-2xx responses other than 429.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// ParseRetryAfter parses the Retry-After header value as either seconds (integer)
// or an HTTP-date (RFC 7231). Returns zero if unparseable or if the date is in the past.
func ParseRetryAfter(val string) time.Duration {
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(val); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// EventKind tags a StreamEvent.
type EventKind int

const (
	EventTextDelta EventKind = iota + 1
	EventReasoningDelta
	EventSource
	EventToolCall
	EventFinish
)

func (k EventKind) String() string {
	switch k {
	case EventTextDelta:
		return "text-delta"
	case EventReasoningDelta:
		return "reasoning-delta"
	case EventSource:
		return "source"
	case EventToolCall:
		return "tool-call"
	case EventFinish:
		return "finish"
	}
	return "unknown"
}

// StreamEvent is one increment of a model response. Only the field that
// matches Kind is populated, except for Finish which may carry Usage.
type StreamEvent struct {
	Kind         EventKind
	Text         string
	Source       content.Source
	ToolCall     content.ToolCall
	FinishReason string
	Usage        usage.TokenCount
}

// StreamFunc receives stream events in order. Returning an error stops the
// stream and the error is returned from Stream.
type StreamFunc func(StreamEvent) error

// Streamer sends a conversation to an LLM and delivers the reply as a series
// of events. Tool calls are delivered whole, never as argument fragments.
// Stream returns after the final event or on the first error.
type Streamer interface {
	Stream(ctx context.Context, c *chat.Chat, tools []toolbox.Tool, fn StreamFunc) error
}

// UsageReporter provides token usage information from a streamer.
// Streamers that embed ModelAdapter implement this interface automatically.
type UsageReporter interface {
	UsageTracker() *usage.Tracker
	ModelMaxTokens() int
}

// Auth holds authentication settings for an LLM provider API.
type Auth struct {
	Key    string // API key value.
	Header string // Header name (default: "Authorization").
	Scheme string // Scheme prefix (default: "Bearer" when Header is "Authorization").
}

// ModelAdapter holds shared state for LLM provider implementations. Embed it in
// concrete provider structs to get HTTP helpers, auth, custom headers, and
// usage tracking. Concrete types define their own Stream method to shadow the
// default stub.
type ModelAdapter struct {
	Name         string                // Model identifier (e.g. "gemini-2.5-flash").
	Temperature  float64               // Sampling temperature.
	MaxTokens    int                   // Maximum tokens in the response.
	Auth         Auth                  // Authentication settings.
	BaseURL      string                // API base URL (no trailing slash).
	Client       *http.Client          // HTTP client; falls back to a shared default.
	Headers      map[string]string     // Extra headers applied to every request.
	Usage        usage.Tracker         // Token usage tracker.
	HeaderParser RateLimitHeaderParser // Optional parser for rate limit response headers.

	rateLimitInfo atomic.Pointer[RateLimitInfo]
	clientOnce    sync.Once
	defaultClient *http.Client
}

// New creates a ModelAdapter with the given settings.
// A nil client falls back to a default client at call time.
func New(baseURL string, auth Auth, client *http.Client) ModelAdapter {
	return ModelAdapter{
		Auth:    auth,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
	}
}

// UsageTracker returns the adapter's token usage tracker.
func (a *ModelAdapter) UsageTracker() *usage.Tracker { return &a.Usage }

// ModelMaxTokens returns the maximum tokens the model will generate per response.
func (a *ModelAdapter) ModelMaxTokens() int { return a.MaxTokens }

// LastRateLimitInfo returns the most recently observed rate limit info, or nil.
func (a *ModelAdapter) LastRateLimitInfo() *RateLimitInfo { return a.rateLimitInfo.Load() }

// Stream is a stub that returns an error. Concrete providers that embed
// ModelAdapter define their own Stream method to shadow this one.
func (a *ModelAdapter) Stream(_ context.Context, _ *chat.Chat, _ []toolbox.Tool, _ StreamFunc) error {
	return errors.New("adapter: Stream not implemented")
}

// httpClient returns the configured client or a cached default. The default
// has no overall timeout because streamed responses are bounded by the
// request context instead.
func (a *ModelAdapter) httpClient() *http.Client {
	if a.Client != nil {
		return a.Client
	}

	a.clientOnce.Do(func() {
		a.defaultClient = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 2 * time.Minute,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConnsPerHost:   8,
			},
		}
	})

	return a.defaultClient
}

// authValue returns the header name and value for the configured auth.
func (a *ModelAdapter) authValue() (string, string) {
	header := a.Auth.Header
	if header == "" {
		header = "Authorization"
	}

	value := a.Auth.Key
	if header == "Authorization" {
		scheme := a.Auth.Scheme
		if scheme == "" {
			scheme = "Bearer"
		}
		value = scheme + " " + value
	} else if a.Auth.Scheme != "" {
		value = a.Auth.Scheme + " " + value
	}

	return header, value
}

// NewRequest builds an *http.Request with the base URL, auth, and custom
// headers already applied.
func (a *ModelAdapter) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return nil, err
	}

	if a.Auth.Key != "" {
		req.Header.Set(a.authValue())
	}

	for k, v := range a.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// Do sends the request using the configured HTTP client.
func (a *ModelAdapter) Do(req *http.Request) (*http.Response, error) {
	return a.httpClient().Do(req) //nolint:gosec // URL is built from trusted BaseURL config, not user input.
}

// post marshals payload and sends it, returning the response after a 2xx
// status check. The caller closes the body.
func (a *ModelAdapter) post(ctx context.Context, path string, payload any, accept string) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := a.NewRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := a.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if err := a.checkStatus(resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}

	return resp, nil
}

func (a *ModelAdapter) checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &RateLimitError{
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       string(respBody),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	a.ObserveHeaders(resp.Header)

	return nil
}

// ObserveHeaders records rate limit info from a successful response's
// headers. Providers that send requests through their own client call it
// directly.
func (a *ModelAdapter) ObserveHeaders(h http.Header) {
	if a.HeaderParser == nil {
		return
	}
	if info := a.HeaderParser(h, time.Now()); info != nil {
		a.rateLimitInfo.Store(info)
	}
}

// PostStream sends a POST expecting a server-sent event stream and returns
// the open response. The caller must close the body.
func (a *ModelAdapter) PostStream(ctx context.Context, path string, payload any) (*http.Response, error) {
	return a.post(ctx, path, payload, "text/event-stream")
}

// CollectText runs a single streamed completion without tools and returns
// the concatenated answer text. Reasoning and sources are discarded.
func CollectText(ctx context.Context, s Streamer, c *chat.Chat) (string, error) {
	var sb strings.Builder

	err := s.Stream(ctx, c, nil, func(ev StreamEvent) error {
		if ev.Kind == EventTextDelta {
			sb.WriteString(ev.Text)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return sb.String(), nil
}
