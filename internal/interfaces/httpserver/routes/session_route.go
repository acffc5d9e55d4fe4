package routes

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
	"github.com/srcbook/websearch-mcp/internal/interfaces/httpserver/responses"
)

// EventStream upgrades a request into a subscription on a broadcast channel.
type EventStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request, channel string) error
}

type SessionRoute struct {
	service SearchService
	events  EventStream
}

type EnrichRequest struct {
	Query string `json:"query" binding:"required"`
}

type EnrichResponse struct {
	Prompt   string `json:"prompt"`
	Enriched bool   `json:"enriched"`
}

func NewSessionRoute(service SearchService, events EventStream) *SessionRoute {
	return &SessionRoute{service: service, events: events}
}

func (r *SessionRoute) RegisterRouter(router gin.IRouter) {
	group := router.Group("/sessions/:id")
	group.GET("/events", r.subscribe)
	group.POST("/enrich", r.enrich)
}

func (r *SessionRoute) session(c *gin.Context) (search.Session, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		responses.BadRequest(c, "session id is required")
		return search.Session{}, false
	}
	return search.Session{ID: id}, true
}

func (r *SessionRoute) subscribe(c *gin.Context) {
	session, ok := r.session(c)
	if !ok {
		return
	}
	// ServeWS has already answered the request when the upgrade fails.
	if err := r.events.ServeWS(c.Writer, c.Request, session.Channel()); err != nil {
		log.Warn().Err(err).Str("session_id", session.ID).Msg("event subscription ended with error")
	}
}

// enrich never fails on search errors; the original query comes back instead
// and subscribers on the session channel receive the error status.
func (r *SessionRoute) enrich(c *gin.Context) {
	session, ok := r.session(c)
	if !ok {
		return
	}

	var req EnrichRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "request body must be JSON with a query field")
		return
	}

	prompt := r.service.EnrichPromptWithWebResults(c.Request.Context(), session, req.Query)
	c.JSON(http.StatusOK, EnrichResponse{
		Prompt:   prompt,
		Enriched: prompt != req.Query,
	})
}
