package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
)

// TransportFactory returns a fresh transport for each connection attempt.
type TransportFactory func() (mcp.Transport, error)

// CommandTransport spawns the provider described by launch for every connection.
// The provider's stderr is passed through so its logs stay visible.
func CommandTransport(launch LaunchConfig) TransportFactory {
	return func() (mcp.Transport, error) {
		if strings.TrimSpace(launch.Command) == "" {
			return nil, errors.New("search provider command is not configured")
		}
		cmd := exec.Command(launch.Command, launch.Args...)
		cmd.Env = append(os.Environ(), launch.Environ()...)
		cmd.Stderr = os.Stderr
		return &mcp.CommandTransport{Command: cmd}, nil
	}
}

// Client owns one lazily created MCP session to the search provider.
type Client struct {
	mcp          *mcp.Client
	newTransport TransportFactory
	launch       LaunchConfig

	group   singleflight.Group
	mu      sync.Mutex
	session *mcp.ClientSession
}

var _ search.Provider = (*Client)(nil)

// NewClient creates a client that connects on first use.
func NewClient(launch LaunchConfig, factory TransportFactory) *Client {
	if factory == nil {
		factory = CommandTransport(launch)
	}
	name := launch.Name
	if name == "" {
		name = "search-provider"
	}
	launch.Name = name

	return &Client{
		mcp: mcp.NewClient(&mcp.Implementation{
			Name:    "websearch-client",
			Version: "1.0.0",
		}, nil),
		newTransport: factory,
		launch:       launch,
	}
}

// Session returns the shared session, connecting if there is none. Concurrent
// callers share a single connection attempt; a failed attempt is not remembered.
func (c *Client) Session(ctx context.Context) (*mcp.ClientSession, error) {
	if s := c.current(); s != nil {
		return s, nil
	}

	ch := c.group.DoChan("connect", func() (interface{}, error) {
		if s := c.current(); s != nil {
			return s, nil
		}
		return c.connect(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*mcp.ClientSession), nil
	}
}

func (c *Client) connect(ctx context.Context) (*mcp.ClientSession, error) {
	transport, err := c.newTransport()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.launch.Name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.launch.ConnectTimeoutDuration())
	defer cancel()

	session, err := c.mcp.Connect(ctx, transport, nil)
	if err != nil {
		log.Error().Err(err).Str("provider", c.launch.Name).Msg("failed to connect to search provider")
		return nil, fmt.Errorf("failed to connect to %s: %w", c.launch.Name, err)
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	go func() {
		err := session.Wait()
		if c.clear(session) {
			log.Warn().Err(err).Str("provider", c.launch.Name).Msg("search provider session ended")
		}
	}()

	log.Info().Str("provider", c.launch.Name).Msg("connected to search provider")
	return session, nil
}

func (c *Client) current() *mcp.ClientSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// clear forgets session if it is still the current one.
func (c *Client) clear(session *mcp.ClientSession) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != session {
		return false
	}
	c.session = nil
	return true
}

// Connected reports whether a session is currently open.
func (c *Client) Connected() bool {
	return c.current() != nil
}

// CallSearch invokes the provider's search tool and returns its text output.
func (c *Client) CallSearch(ctx context.Context, query string, numResults int) (json.RawMessage, error) {
	session, err := c.Session(ctx)
	if err != nil {
		return nil, err
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: search.ToolName,
		Arguments: map[string]any{
			"query":      query,
			"numResults": numResults,
		},
	})
	if err != nil {
		var rpcErr *jsonrpc.Error
		if errors.As(err, &rpcErr) {
			return nil, search.NewProtocolError(query, rpcErr.Code, rpcErr.Message)
		}
		if ctx.Err() == nil && search.IsConnectionFailure(err) {
			log.Warn().Err(err).Str("provider", c.launch.Name).Msg("provider session invalid, dropping it")
			if c.clear(session) {
				_ = session.Close()
			}
		}
		return nil, fmt.Errorf("search tool call failed: %w", err)
	}

	text := toolText(res)
	if res.IsError {
		if text == "" {
			text = "search tool reported an error"
		}
		return nil, search.NewSearchError(query, errors.New(text))
	}
	return json.RawMessage(text), nil
}

// Disconnect closes the current session. The next call reconnects.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session == nil {
		return nil
	}
	log.Info().Str("provider", c.launch.Name).Msg("disconnecting from search provider")
	return session.Close()
}

func toolText(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	var parts []string
	for _, content := range res.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
