package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/config"
	"github.com/srcbook/websearch-mcp/internal/interfaces/httpserver/middlewares"
	"github.com/srcbook/websearch-mcp/internal/interfaces/httpserver/routes"
	"github.com/srcbook/websearch-mcp/pkg/observability"
)

type stubService struct{}

func (stubService) Search(context.Context, string, int) (*search.Response, error) {
	return &search.Response{}, nil
}

func (stubService) EnrichPromptWithWebResults(_ context.Context, _ search.Session, query string) string {
	return query
}

type stubProvider struct{ connected bool }

func (p stubProvider) Connected() bool  { return p.connected }
func (stubProvider) Disconnect() error { return nil }

type stubEvents struct{}

func (stubEvents) ServeWS(http.ResponseWriter, *http.Request, string) error { return nil }

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	obs, err := observability.Init(context.Background(), observability.DefaultConfig(serviceName))
	require.NoError(t, err)

	provider := stubProvider{connected: true}
	return NewHTTPServer(
		&config.Config{HTTPPort: "0"},
		obs,
		routes.NewSearchRoute(stubService{}, provider),
		routes.NewSessionRoute(stubService{}, stubEvents{}),
		provider,
	)
}

func TestHealthEndpoints(t *testing.T) {
	server := newTestServer(t)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"websearch-gateway"}`, w.Body.String())

	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"provider_connected":true`)
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t)

	// Produce at least one request sample first.
	server.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/search?q=go", nil))

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "websearch_gateway_requests_total"))
}

func TestRequestIDPropagation(t *testing.T) {
	server := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(middlewares.RequestIDHeader, "abc-123")
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(middlewares.RequestIDHeader))

	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, w.Header().Get(middlewares.RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	server := newTestServer(t)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/v1/search", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
