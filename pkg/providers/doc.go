// Package providers groups the concrete model adapters.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/blasko/pkg/providers/gemini]: Google Gemini streamGenerateContent over SSE
//   - [github.com/germanamz/blasko/pkg/providers/openai]: OpenAI-compatible chat completions (OpenAI, xAI Grok) via openai-go
//
// Both embed [github.com/germanamz/blasko/pkg/modeladapter.ModelAdapter] and
// implement modeladapter.Streamer.
package providers
