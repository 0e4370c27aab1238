// ABOUTME: MCP server exposing a Catalogue over the go-sdk transports
// ABOUTME: Converts handler errors into isError tool results

package tools

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389/agent-roster/internal/roster"
	"github.com/2389/agent-roster/internal/store"
)

// ServerName is the implementation name reported during the MCP handshake.
const ServerName = "agent-roster-tools"

// NewRosterCatalogue registers the agent and document packs against s.
func NewRosterCatalogue(s store.DocumentStore, defaults roster.Defaults, logger *slog.Logger) (*Catalogue, error) {
	c := NewCatalogue(logger)
	for _, pack := range []*Pack{AgentPack(s, defaults), DocumentPack(s)} {
		if err := c.RegisterPack(pack); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewServer builds an MCP server advertising every tool in c.
func NewServer(c *Catalogue, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)
	for _, tool := range c.List() {
		server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema(),
		}, c.mcpHandler(tool.Name))
	}
	return server
}

// Serve runs the server on stdin/stdout until the client disconnects or ctx
// is cancelled.
func Serve(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func (c *Catalogue) mcpHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args []byte
		if req.Params != nil {
			args = req.Params.Arguments
		}
		text, err := c.Call(ctx, name, args)
		if err != nil {
			c.logger.Warn("tool failed", "tool", name, "error", err)
			return errorResult(err.Error()), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
