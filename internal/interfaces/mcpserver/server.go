package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/metrics"
)

const (
	methodCallTool      = "tools/call"
	methodListResources = "resources/list"
	methodReadResource  = "resources/read"
)

var tracer = otel.Tracer("github.com/srcbook/websearch-mcp/internal/interfaces/mcpserver")

// Server exposes the search tool and recent-search resources over MCP.
type Server struct {
	mcp      *mcp.Server
	handlers *Handlers

	mu      sync.Mutex
	session *mcp.ServerSession
}

// NewServer registers the search tool, the cached search resources and the
// request middleware.
func NewServer(handlers *Handlers, version string) *Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "websearch-provider",
		Version: version,
	}, nil)

	server.AddTool(searchTool(), func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handlers.CallTool(ctx, req.Params.Name, req.Params.Arguments)
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "recent-search",
		Title:       "Recent web search",
		Description: "A recent web search addressed by position, 0 being the newest",
		URITemplate: ResourceTemplate,
		MIMEType:    jsonMIMEType,
	}, func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return handlers.ReadResource(req.Params.URI)
	})

	server.AddReceivingMiddleware(loggingMiddleware(), routingMiddleware(handlers))

	return &Server{mcp: server, handlers: handlers}
}

func searchTool() *mcp.Tool {
	minLength := 1
	minResults, maxResults := 1.0, float64(search.MaxNumResults)
	return &mcp.Tool{
		Name:        search.ToolName,
		Description: "Search the web with Exa and return matching pages with their extracted text",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {
					Type:        "string",
					Description: "Search query",
					MinLength:   &minLength,
				},
				"numResults": {
					Type:        "integer",
					Description: "Number of results to return",
					Minimum:     &minResults,
					Maximum:     &maxResults,
					Default:     json.RawMessage(fmt.Sprintf("%d", search.DefaultNumResults)),
				},
			},
			Required: []string{"query"},
		},
	}
}

// routingMiddleware answers the requests whose error codes and listing the SDK
// would otherwise decide on its own.
func routingMiddleware(handlers *Handlers) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			switch method {
			case methodCallTool:
				if call, ok := req.(*mcp.CallToolRequest); ok && call.Params != nil && call.Params.Name != search.ToolName {
					return nil, rpcError(search.CodeMethodNotFound, "Unknown tool: %s", call.Params.Name)
				}
			case methodListResources:
				return &mcp.ListResourcesResult{Resources: handlers.ListResources()}, nil
			case methodReadResource:
				if read, ok := req.(*mcp.ReadResourceRequest); ok && read.Params != nil {
					res, err := handlers.ReadResource(read.Params.URI)
					if err != nil {
						return nil, err
					}
					return res, nil
				}
			}
			return next(ctx, method, req)
		}
	}
}

// loggingMiddleware traces and logs every request and counts tool calls.
func loggingMiddleware() mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			ctx, span := tracer.Start(ctx, "mcp "+method)
			defer span.End()

			start := time.Now()
			result, err := next(ctx, method, req)

			event := log.Debug()
			if err != nil {
				event = log.Error().Err(err)
				var rpcErr *jsonrpc.Error
				if errors.As(err, &rpcErr) {
					event = event.Int64("code", rpcErr.Code)
					span.SetAttributes(attribute.Int64("rpc.jsonrpc.error_code", rpcErr.Code))
				}
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			event.Str("method", method).Dur("duration", time.Since(start)).Msg("mcp request handled")

			if method == methodCallTool {
				name := "unknown"
				if call, ok := req.(*mcp.CallToolRequest); ok && call.Params != nil {
					name = call.Params.Name
				}
				status := "success"
				if err != nil {
					status = "error"
				}
				metrics.RecordToolCall(name, status)
			}
			return result, err
		}
	}
}

// Connect serves one session over transport.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	session, err := s.mcp.Connect(ctx, transport, nil)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
	return session, nil
}

// Initialize starts serving over stdin/stdout.
func (s *Server) Initialize(ctx context.Context) error {
	if _, err := s.Connect(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("failed to start stdio transport: %w", err)
	}
	log.Info().Msg("search provider listening on stdio")
	return nil
}

// Wait blocks until the current session ends.
func (s *Server) Wait() error {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return nil
	}
	return session.Wait()
}

// Stop closes the current session.
func (s *Server) Stop() error {
	s.mu.Lock()
	session := s.session
	s.session = nil
	s.mu.Unlock()
	if session == nil {
		return nil
	}
	return session.Close()
}

// HTTPHandler serves the same server over streamable HTTP.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}
