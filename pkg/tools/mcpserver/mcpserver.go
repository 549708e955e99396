// Package mcpserver exposes a tool registry over the Model Context Protocol,
// either on stdio or as a streamable HTTP handler.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/germanamz/blasko/pkg/tools/toolbox"
	"github.com/germanamz/blasko/pkg/tools/toolerr"
)

// MCPServer serves the tools of a ToolBox over MCP using the official MCP Go
// SDK. Calls go through ToolBox.Execute, so arguments are validated against
// the tool schema before the handler runs.
type MCPServer struct {
	server *mcp.Server
	tools  *toolbox.ToolBox
}

// New creates an MCPServer with the given name and version serving every
// tool of tb.
func New(name, version string, tb *toolbox.ToolBox) *MCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, nil)

	s := &MCPServer{server: server, tools: tb}
	for _, t := range tb.Tools() {
		server.AddTool(toSDKTool(t), s.handler(t.Name))
	}

	return s
}

// Serve serves MCP requests read from in, writing responses to out. It
// blocks until ctx is cancelled or the transport closes.
func (s *MCPServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	transport := &mcp.IOTransport{
		Reader: io.NopCloser(in),
		Writer: nopWriteCloser{out},
	}

	return s.run(ctx, transport)
}

// Handler returns the server as a streamable HTTP handler.
func (s *MCPServer) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.server }, nil)
}

// run starts the server with the given transport. Tests call it directly
// with an in-memory transport.
func (s *MCPServer) run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

func toSDKTool(t toolbox.Tool) *mcp.Tool {
	return &mcp.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema,
	}
}

// handler runs a tool through the registry. Tool failures are reported as
// an error result carrying the failure kind, not as protocol errors.
func (s *MCPServer) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.Params.Arguments
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}

		out, err := s.tools.Execute(ctx, name, args)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%s: %v", toolerr.KindOf(err), err)}},
				IsError: true,
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(out)}},
		}, nil
	}
}

// nopWriteCloser wraps an io.Writer as an io.WriteCloser with a no-op Close.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
