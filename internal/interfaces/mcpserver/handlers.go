package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/exa"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/searchcache"
)

const (
	// ResourceScheme prefixes every cached search resource URI.
	ResourceScheme = "srcbook://searches/"
	// ResourceTemplate addresses cached searches by position.
	ResourceTemplate = ResourceScheme + "{index}"

	jsonMIMEType = "application/json"
)

// Searcher runs searches against the upstream API.
type Searcher interface {
	HasAPIKey() bool
	Search(ctx context.Context, query string, numResults int) (json.RawMessage, error)
}

// Handlers implements the provider's tool and resource behavior independent of
// the transport.
type Handlers struct {
	searcher Searcher
	cache    *searchcache.Cache
	now      func() time.Time
}

// NewHandlers creates handlers over searcher and cache.
func NewHandlers(searcher Searcher, cache *searchcache.Cache) *Handlers {
	return &Handlers{searcher: searcher, cache: cache, now: time.Now}
}

func rpcError(code int64, format string, args ...any) *jsonrpc.Error {
	return &jsonrpc.Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

type searchArgs struct {
	Query      *string  `json:"query"`
	NumResults *float64 `json:"numResults"`
}

func parseSearchArgs(raw json.RawMessage) (string, int, error) {
	var args searchArgs
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", 0, rpcError(search.CodeInvalidParams, "Invalid search arguments: %v", err)
		}
	}
	if args.Query == nil || strings.TrimSpace(*args.Query) == "" {
		return "", 0, rpcError(search.CodeInvalidParams, "Invalid search arguments: query must be a non-empty string")
	}

	numResults := search.DefaultNumResults
	if args.NumResults != nil {
		n := *args.NumResults
		if n != math.Trunc(n) || n < 1 || n > search.MaxNumResults {
			return "", 0, rpcError(search.CodeInvalidParams,
				"Invalid search arguments: numResults must be an integer between 1 and %d", search.MaxNumResults)
		}
		numResults = int(n)
	}
	return *args.Query, numResults, nil
}

// CallTool runs the named tool with raw JSON arguments.
func (h *Handlers) CallTool(ctx context.Context, name string, arguments json.RawMessage) (*mcp.CallToolResult, error) {
	if name != search.ToolName {
		return nil, rpcError(search.CodeMethodNotFound, "Unknown tool: %s", name)
	}

	query, numResults, err := parseSearchArgs(arguments)
	if err != nil {
		return nil, err
	}

	if !h.searcher.HasAPIKey() {
		return nil, rpcError(search.CodeInvalidRequest, "%s", exa.ErrMissingAPIKey.Error())
	}

	raw, err := h.searcher.Search(ctx, query, numResults)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var statusErr *exa.UpstreamStatusError
		if errors.As(err, &statusErr) {
			return nil, rpcError(search.CodeInternalError, "%s", statusErr.Error())
		}
		if errors.Is(err, exa.ErrMissingAPIKey) {
			return nil, rpcError(search.CodeInvalidRequest, "%s", err.Error())
		}
		return nil, rpcError(search.CodeInternalError, "Exa API error: %v", err)
	}

	pretty, err := indent(raw)
	if err != nil {
		return nil, rpcError(search.CodeInternalError, "Exa API returned invalid JSON: %v", err)
	}

	h.cache.Push(search.CachedSearch{
		Query:     query,
		Response:  raw,
		Timestamp: h.now(),
	})
	log.Debug().Int("cache_entries", h.cache.Len()).Msg("search cached")

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: pretty}},
	}, nil
}

// ListResources describes every cached search, newest first.
func (h *Handlers) ListResources() []*mcp.Resource {
	entries := h.cache.List()
	out := make([]*mcp.Resource, 0, len(entries))
	for i, entry := range entries {
		out = append(out, &mcp.Resource{
			URI:         ResourceScheme + strconv.Itoa(i),
			Name:        fmt.Sprintf("Recent search: %s", entry.Query),
			Description: fmt.Sprintf("Search results for %q from %s", entry.Query, entry.ISOTimestamp()),
			MIMEType:    jsonMIMEType,
		})
	}
	return out
}

// ReadResource returns the cached response at the index named by uri.
func (h *Handlers) ReadResource(uri string) (*mcp.ReadResourceResult, error) {
	index, ok := parseResourceIndex(uri)
	if !ok {
		return nil, rpcError(search.CodeInvalidRequest, "Invalid resource URI: %s", uri)
	}

	entry, ok := h.cache.Get(index)
	if !ok {
		return nil, rpcError(search.CodeInvalidRequest, "Search result not found: %d", index)
	}

	pretty, err := indent(entry.Response)
	if err != nil {
		return nil, rpcError(search.CodeInternalError, "Cached search is not valid JSON: %v", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: jsonMIMEType,
			Text:     pretty,
		}},
	}, nil
}

func parseResourceIndex(uri string) (int, bool) {
	rest, ok := strings.CutPrefix(uri, ResourceScheme)
	if !ok || rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	index, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return index, true
}

func indent(raw json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}
