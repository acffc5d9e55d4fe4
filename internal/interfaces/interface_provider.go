package interfaces

import (
	"github.com/google/wire"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/broadcast"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/config"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/exa"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/mcpclient"
	"github.com/srcbook/websearch-mcp/internal/interfaces/httpserver"
	"github.com/srcbook/websearch-mcp/internal/interfaces/httpserver/routes"
	"github.com/srcbook/websearch-mcp/internal/interfaces/mcpserver"
)

// ProviderInterfaces provides the MCP surface of the provider process
var ProviderInterfaces = wire.NewSet(
	wire.Bind(new(mcpserver.Searcher), new(*exa.Client)),
	mcpserver.NewHandlers,
	ProvideMCPServer,
)

// GatewayInterfaces provides the HTTP surface of the gateway
var GatewayInterfaces = wire.NewSet(
	wire.Bind(new(routes.SearchService), new(*search.Service)),
	wire.Bind(new(routes.ProviderConnection), new(*mcpclient.Client)),
	wire.Bind(new(routes.EventStream), new(*broadcast.Hub)),
	routes.RoutesProvider,
	httpserver.NewHTTPServer,
)

// ProvideMCPServer builds the provider's MCP server
func ProvideMCPServer(handlers *mcpserver.Handlers, cfg *config.Config) *mcpserver.Server {
	return mcpserver.NewServer(handlers, cfg.ServiceVersion)
}
