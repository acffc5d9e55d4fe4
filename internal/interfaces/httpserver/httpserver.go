package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/srcbook/websearch-mcp/internal/infrastructure/config"
	"github.com/srcbook/websearch-mcp/internal/interfaces/httpserver/middlewares"
	"github.com/srcbook/websearch-mcp/internal/interfaces/httpserver/routes"
	"github.com/srcbook/websearch-mcp/pkg/observability"
	obsmiddleware "github.com/srcbook/websearch-mcp/pkg/observability/middleware"
)

const (
	serviceName     = "websearch-gateway"
	shutdownTimeout = 10 * time.Second
)

type HTTPServer struct {
	router       *gin.Engine
	config       *config.Config
	searchRoute  *routes.SearchRoute
	sessionRoute *routes.SessionRoute
	provider     routes.ProviderConnection
}

func NewHTTPServer(
	cfg *config.Config,
	obs *observability.Provider,
	searchRoute *routes.SearchRoute,
	sessionRoute *routes.SessionRoute,
	provider routes.ProviderConnection,
) *HTTPServer {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewares.RequestID())
	router.Use(middlewares.RequestLogger())
	router.Use(middlewares.CORS())
	router.Use(middlewares.MetricsRecorder())
	if obs != nil {
		router.Use(obsmiddleware.Tracing(obs.Tracer, obs.Meter, serviceName))
	}

	s := &HTTPServer{
		router:       router,
		config:       cfg,
		searchRoute:  searchRoute,
		sessionRoute: sessionRoute,
		provider:     provider,
	}
	s.setupRoutes()
	return s
}

func (s *HTTPServer) setupRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})

	// The provider process is started lazily, so readiness does not wait for it.
	s.router.GET("/readyz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":             "ready",
			"service":            serviceName,
			"provider_connected": s.provider.Connected(),
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1")
	s.searchRoute.RegisterRouter(v1)
	s.sessionRoute.RegisterRouter(v1)
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.config.HTTPPort),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", srv.Addr).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}
	return <-errCh
}
