package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
)

type toolFunc = mcp.ToolHandler

// inMemoryProvider starts a fresh provider server for every transport it hands out.
type inMemoryProvider struct {
	t       *testing.T
	handler toolFunc
	dials   int32
}

func (p *inMemoryProvider) factory() TransportFactory {
	return func() (mcp.Transport, error) {
		atomic.AddInt32(&p.dials, 1)
		server := mcp.NewServer(&mcp.Implementation{Name: "fake-provider", Version: "test"}, nil)
		server.AddTool(&mcp.Tool{
			Name:        search.ToolName,
			Description: "fake search",
			InputSchema: &jsonschema.Schema{Type: "object"},
		}, p.handler)

		clientTransport, serverTransport := mcp.NewInMemoryTransports()
		serverSession, err := server.Connect(context.Background(), serverTransport, nil)
		if err != nil {
			return nil, err
		}
		p.t.Cleanup(func() { _ = serverSession.Close() })
		return clientTransport, nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func newTestClient(t *testing.T, handler toolFunc) (*Client, *inMemoryProvider) {
	t.Helper()
	provider := &inMemoryProvider{t: t, handler: handler}
	client := NewClient(LaunchConfig{Name: "fake"}, provider.factory())
	t.Cleanup(func() { _ = client.Disconnect() })
	return client, provider
}

func TestCallSearch_ReturnsToolText(t *testing.T) {
	client, _ := newTestClient(t, func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Query      string `json:"query"`
			NumResults int    `json:"numResults"`
		}
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return nil, err
		}
		body, _ := json.Marshal(map[string]any{"results": []any{}, "echo": args.Query, "n": args.NumResults})
		return textResult(string(body)), nil
	})

	raw, err := client.CallSearch(context.Background(), "golang", 4)
	require.NoError(t, err)
	assert.JSONEq(t, `{"results":[],"echo":"golang","n":4}`, string(raw))
	assert.True(t, client.Connected())
}

func TestSession_ConnectsOnceForConcurrentCallers(t *testing.T) {
	client, provider := newTestClient(t, func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(`{"results":[]}`), nil
	})

	var wg sync.WaitGroup
	sessions := make([]*mcp.ClientSession, 10)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := client.Session(context.Background())
			assert.NoError(t, err)
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.dials))
	for _, s := range sessions {
		assert.Same(t, sessions[0], s)
	}
}

func TestSession_FailedAttemptIsRetried(t *testing.T) {
	var attempts int32
	healthy := &inMemoryProvider{t: t, handler: func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(`{"results":[]}`), nil
	}}
	client := NewClient(LaunchConfig{Name: "flaky"}, func() (mcp.Transport, error) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return nil, errors.New(`exec: "websearch-provider": executable file not found in $PATH`)
		}
		return healthy.factory()()
	})
	t.Cleanup(func() { _ = client.Disconnect() })

	_, err := client.Session(context.Background())
	require.Error(t, err)
	assert.True(t, search.IsConnectionFailure(err))
	assert.False(t, client.Connected())

	_, err = client.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestDisconnect_NextCallReconnects(t *testing.T) {
	client, provider := newTestClient(t, func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(`{"results":[]}`), nil
	})

	_, err := client.CallSearch(context.Background(), "a", 1)
	require.NoError(t, err)
	require.NoError(t, client.Disconnect())
	assert.False(t, client.Connected())

	_, err = client.CallSearch(context.Background(), "b", 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&provider.dials))
}

func TestDisconnect_WithoutSession(t *testing.T) {
	client := NewClient(LaunchConfig{}, func() (mcp.Transport, error) {
		return nil, errors.New("unused")
	})
	assert.NoError(t, client.Disconnect())
}

func TestCallSearch_ProtocolErrorKeepsCode(t *testing.T) {
	client, _ := newTestClient(t, func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, &jsonrpc.Error{Code: search.CodeInvalidRequest, Message: "EXA_API_KEY environment variable is not set"}
	})

	_, err := client.CallSearch(context.Background(), "golang", 1)
	require.Error(t, err)

	var searchErr *search.SearchError
	require.ErrorAs(t, err, &searchErr)
	assert.Equal(t, search.KindProtocol, searchErr.Kind)
	assert.Equal(t, search.CodeInvalidRequest, searchErr.Code)
	assert.Equal(t, "golang", searchErr.Query)
	assert.Contains(t, searchErr.Message, "EXA_API_KEY")
}

func TestCallSearch_ToolErrorResult(t *testing.T) {
	client, _ := newTestClient(t, func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := textResult("upstream exploded")
		res.IsError = true
		return res, nil
	})

	_, err := client.CallSearch(context.Background(), "golang", 1)
	require.Error(t, err)
	assert.True(t, search.IsKind(err, search.KindSearch))
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestCallSearch_HonorsContext(t *testing.T) {
	client, _ := newTestClient(t, func(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	_, err := client.Session(ctx)
	require.NoError(t, err)

	go cancel()
	_, err = client.CallSearch(ctx, "golang", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, client.Connected())
}
