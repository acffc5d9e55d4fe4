package mcpserver

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
)

func connectClient(t *testing.T, server *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	_, err := server.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Stop() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestServer_ListsSearchTool(t *testing.T) {
	server := NewServer(newTestHandlers(t, &fakeSearcher{hasKey: true}), "test")
	session := connectClient(t, server)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Tools, 1)
	assert.Equal(t, "search", res.Tools[0].Name)
}

func TestServer_CallToolRoundTrip(t *testing.T) {
	server := NewServer(newTestHandlers(t, &fakeSearcher{hasKey: true}), "test")
	session := connectClient(t, server)
	ctx := context.Background()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "search",
		Arguments: map[string]any{"query": "golang", "numResults": 2},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	assert.Contains(t, res.Content[0].(*mcp.TextContent).Text, "https://example.com/golang")

	listed, err := session.ListResources(ctx, nil)
	require.NoError(t, err)
	require.Len(t, listed.Resources, 1)
	assert.Equal(t, "srcbook://searches/0", listed.Resources[0].URI)

	read, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: "srcbook://searches/0"})
	require.NoError(t, err)
	require.Len(t, read.Contents, 1)
	assert.Equal(t, "application/json", read.Contents[0].MIMEType)
}

func TestServer_ErrorCodes(t *testing.T) {
	server := NewServer(newTestHandlers(t, &fakeSearcher{hasKey: false}), "test")
	session := connectClient(t, server)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		code int64
	}{
		{"unknown tool", func() error {
			_, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "scrape", Arguments: map[string]any{}})
			return err
		}, search.CodeMethodNotFound},
		{"missing api key", func() error {
			_, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "search", Arguments: map[string]any{"query": "go"}})
			return err
		}, search.CodeInvalidRequest},
		{"bad resource uri", func() error {
			_, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: "srcbook://searches/nope"})
			return err
		}, search.CodeInvalidRequest},
		{"missing resource", func() error {
			_, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: "srcbook://searches/3"})
			return err
		}, search.CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var rpcErr *jsonrpc.Error
			require.ErrorAs(t, err, &rpcErr)
			assert.Equal(t, tt.code, rpcErr.Code)
		})
	}
}

func TestServer_StopWithoutSession(t *testing.T) {
	server := NewServer(newTestHandlers(t, &fakeSearcher{hasKey: true}), "test")
	assert.NoError(t, server.Stop())
	assert.NoError(t, server.Wait())
}
