package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/srcbook/websearch-mcp/internal/infrastructure/config"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/logger"
	"github.com/srcbook/websearch-mcp/internal/interfaces/mcpserver"
	"github.com/srcbook/websearch-mcp/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

type Application struct {
	config        *config.Config
	observability *observability.Provider
	mcpServer     *mcpserver.Server
}

func init() {
	// stdout carries the MCP stream, so logs always go to stderr
	logger.Init("info", "json", os.Stderr)
}

// Start serves MCP over stdio until the parent closes the stream or ctx is cancelled.
func (app *Application) Start(ctx context.Context) error {
	if app.config.ProviderHTTPPort != "" {
		go app.serveHTTP(ctx)
	}

	if err := app.mcpServer.Initialize(ctx); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- app.mcpServer.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Debug().Err(err).Msg("stdio session ended")
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received, closing search provider")
		return app.mcpServer.Stop()
	}
}

func (app *Application) serveHTTP(ctx context.Context) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", app.config.ProviderHTTPPort),
		Handler:           app.mcpServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("address", srv.Addr).Msg("search provider listening on streamable HTTP")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("search provider HTTP server failed")
	}
}

func main() {
	config.LoadEnvFiles()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	log.Info().
		Str("log_level", cfg.LogLevel).
		Bool("exa_api_key", cfg.ExaAPIKey != "").
		Msg("Starting websearch provider")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := CreateApplication(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := application.observability.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	if err := application.Start(ctx); err != nil {
		log.Error().Err(err).Msg("search provider stopped with error")
		return
	}
	log.Info().Msg("search provider exited cleanly")
}
