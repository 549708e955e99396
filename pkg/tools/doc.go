// Package tools holds the assistant's tool layer.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/blasko/pkg/tools/toolbox]: Tool type and ToolBox registry for registering, listing, validating and calling tools
//   - [github.com/germanamz/blasko/pkg/tools/toolerr]: categorized tool errors (validation, upstream, domain, ...)
//   - [github.com/germanamz/blasko/pkg/tools/stacks]: the Stacks tools (chain reads, names, DeFi stats, knowledge and transaction builders)
//   - [github.com/germanamz/blasko/pkg/tools/mcpserver]: exposes a ToolBox over MCP using the official MCP Go SDK
//
// toolbox is the foundation layer. stacks and mcpserver depend on it but are
// independent of each other.
package tools
