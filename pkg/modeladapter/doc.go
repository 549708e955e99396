// Package modeladapter defines the streaming contract between the chat
// orchestrator and LLM providers.
//
// It contains:
//   - [Streamer], the interface every provider implements, and the
//     [StreamEvent] values it delivers
//   - [ModelAdapter], an embeddable base with HTTP helpers, auth and custom
//     headers
//   - [RateLimitedStreamer], a wrapper that paces requests and retries 429s
//     that arrive before any output
//   - [github.com/germanamz/blasko/pkg/modeladapter/usage], a thread-safe
//     token usage tracker
//
// Concrete adapters live in pkg/providers.
package modeladapter
