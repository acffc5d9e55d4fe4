package mcpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
)

var allowedMCPMethods = map[string]bool{
	"initialize":                true,
	"notifications/initialized": true,
	"ping":                      true,

	"tools/list": true,
	"tools/call":  true,

	"resources/list":           true,
	"resources/templates/list": true,
	"resources/read":           true,
}

type rpcErrorBody struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id"`
	Error   rpcErrorDetail `json:"error"`
}

type rpcErrorDetail struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

func abortRPC(reqCtx *gin.Context, status int, code int64, message string) {
	reqCtx.AbortWithStatusJSON(status, rpcErrorBody{
		JSONRPC: "2.0",
		Error:   rpcErrorDetail{Code: code, Message: message},
	})
}

// MCPMethodGuard rejects HTTP payloads whose JSON-RPC method the provider does not serve.
func MCPMethodGuard(allowedMethods map[string]bool) gin.HandlerFunc {
	return func(reqCtx *gin.Context) {
		bodyBytes, err := io.ReadAll(reqCtx.Request.Body)
		if err != nil {
			abortRPC(reqCtx, http.StatusBadRequest, search.CodeInvalidRequest, "failed to read MCP request body")
			return
		}
		_ = reqCtx.Request.Body.Close()

		if len(bodyBytes) == 0 {
			abortRPC(reqCtx, http.StatusBadRequest, search.CodeInvalidRequest, "empty MCP request body")
			return
		}

		reqCtx.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		var payload struct {
			Method string `json:"method"`
		}
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			abortRPC(reqCtx, http.StatusBadRequest, search.CodeInvalidRequest, "invalid MCP request payload")
			return
		}
		if payload.Method == "" {
			abortRPC(reqCtx, http.StatusBadRequest, search.CodeInvalidRequest, "missing method field in MCP request")
			return
		}
		if !allowedMethods[payload.Method] {
			abortRPC(reqCtx, http.StatusBadRequest, search.CodeMethodNotFound, "unsupported MCP method: "+payload.Method)
			return
		}

		reqCtx.Next()
	}
}

// RegisterRouter mounts the streamable HTTP endpoint at POST /mcp.
func (s *Server) RegisterRouter(router gin.IRouter) {
	handler := s.HTTPHandler()
	router.POST("/mcp", MCPMethodGuard(allowedMCPMethods), func(reqCtx *gin.Context) {
		// The streamable handler insists on both content types even when the client omits Accept.
		reqCtx.Request.Header.Set("Accept", "application/json, text/event-stream")
		handler.ServeHTTP(reqCtx.Writer, reqCtx.Request)
	})
}

// Router builds a standalone engine serving the provider over HTTP.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "websearch-provider"})
	})
	s.RegisterRouter(router.Group("/v1"))
	return router
}
