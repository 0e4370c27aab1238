// ABOUTME: Protocol tests for the MCP server over in-memory transports

package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectClient(t *testing.T, c *Catalogue) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := NewServer(c, "test").Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "roster-test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestServer_ListTools(t *testing.T) {
	c, _ := setupCatalogue(t)
	session := connectClient(t, c)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		assert.NotNil(t, tool.InputSchema, "tool %s", tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"save_agent", "load_agent", "delete_agent", "list_agents", "query_agents",
		"save_json_doc", "load_json_doc", "delete_json_doc", "query_json_docs",
	}, names)
}

func TestServer_CallTool(t *testing.T) {
	c, _ := setupCatalogue(t)
	session := connectClient(t, c)
	ctx := context.Background()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "save_agent",
		Arguments: map[string]any{"doc": map[string]any{"name": "scout-1"}},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	msg := textOf(t, res)
	assert.True(t, strings.HasPrefix(msg, "Saved agent: "), msg)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{Name: "list_agents", Arguments: map[string]any{}})
	require.NoError(t, err)
	assert.Contains(t, textOf(t, res), `"name":"scout-1"`)
}

func TestServer_ToolErrorsAreResults(t *testing.T) {
	c, _ := setupCatalogue(t)
	session := connectClient(t, c)
	ctx := context.Background()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "delete_agent",
		Arguments: map[string]any{"id": "nonexistent-id"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "not found")

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "save_agent",
		Arguments: map[string]any{"doc": map[string]any{}},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "invalid arguments")
}

func TestServer_UnknownTool(t *testing.T) {
	c, _ := setupCatalogue(t)
	session := connectClient(t, c)

	_, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: "no_such_tool"})
	assert.Error(t, err)
}
