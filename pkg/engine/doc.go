// Package engine is the composition root that assembles all blasko
// components from configuration: upstream clients, the Stacks tool
// registry, the model adapter, the orchestrator and the MCP server.
// Frontends (HTTP server, MCP stdio, terminal chat) interact with Engine,
// observe tool activity through an EventBus, and never wire lower-level
// packages themselves.
package engine
