package routes

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
	"github.com/srcbook/websearch-mcp/internal/interfaces/httpserver/responses"
)

// SearchService is the part of the search facade the gateway exposes.
type SearchService interface {
	Search(ctx context.Context, query string, numResults int) (*search.Response, error)
	EnrichPromptWithWebResults(ctx context.Context, session search.Session, query string) string
}

// ProviderConnection is the gateway's handle on the provider process.
type ProviderConnection interface {
	Connected() bool
	Disconnect() error
}

type SearchRoute struct {
	service  SearchService
	provider ProviderConnection
}

// SearchResponse is returned by GET /v1/search.
type SearchResponse struct {
	Query     string          `json:"query"`
	RequestID string          `json:"requestId,omitempty"`
	Results   []search.Result `json:"results"`
	Formatted string          `json:"formatted,omitempty"`
}

func NewSearchRoute(service SearchService, provider ProviderConnection) *SearchRoute {
	return &SearchRoute{service: service, provider: provider}
}

func (r *SearchRoute) RegisterRouter(router gin.IRouter) {
	group := router.Group("/search")
	group.GET("", r.search)
	group.GET("/client", r.status)
	group.DELETE("/client", r.disconnect)
}

func (r *SearchRoute) search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		responses.BadRequest(c, "query parameter q is required")
		return
	}

	numResults := 0
	if raw := c.Query("num"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > search.MaxNumResults {
			responses.BadRequest(c, "num must be an integer between 1 and 50")
			return
		}
		numResults = n
	}

	resp, err := r.service.Search(c.Request.Context(), query, numResults)
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	out := SearchResponse{
		Query:     query,
		RequestID: resp.RequestID,
		Results:   resp.Results,
	}
	if out.Results == nil {
		out.Results = []search.Result{}
	}
	if c.Query("format") == "text" {
		out.Formatted = search.FormatSearchResults(resp.Results, query)
	}
	c.JSON(http.StatusOK, out)
}

func (r *SearchRoute) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connected": r.provider.Connected()})
}

// disconnect closes the provider session; the next search reconnects.
func (r *SearchRoute) disconnect(c *gin.Context) {
	if err := r.provider.Disconnect(); err != nil {
		log.Warn().Err(err).Msg("provider disconnect reported an error")
	}
	c.Status(http.StatusNoContent)
}
