// Package chats provides a provider-agnostic data model for chat interactions.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/blasko/pkg/chats/role]: conversation roles (system, user, assistant)
//   - [github.com/germanamz/blasko/pkg/chats/content]: message parts (text, reasoning, sources, tool invocations, wallet results)
//   - [github.com/germanamz/blasko/pkg/chats/message]: messages composed of an id, a role, and content parts
//   - [github.com/germanamz/blasko/pkg/chats/chat]: per-request conversation container
//
// No provider or API code is included.
package chats
