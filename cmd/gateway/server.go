package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/srcbook/websearch-mcp/internal/infrastructure/broadcast"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/config"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/logger"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/mcpclient"
	"github.com/srcbook/websearch-mcp/internal/interfaces/httpserver"
	"github.com/srcbook/websearch-mcp/pkg/observability"
)

const shutdownTimeout = 10 * time.Second

type Application struct {
	config        *config.Config
	observability *observability.Provider
	httpServer    *httpserver.HTTPServer
	hub           *broadcast.Hub
	relay         *broadcast.Relay
	searchClient  *mcpclient.Client
}

func init() {
	logger.Init("info", "json", os.Stdout)
}

// Start runs the gateway until ctx is cancelled, then tears down the
// websocket hub and the provider process.
func (app *Application) Start(ctx context.Context) error {
	if app.relay != nil {
		go func() {
			if err := app.relay.Run(ctx); err != nil {
				log.Error().Err(err).Msg("redis relay stopped")
			}
		}()
	}

	err := app.httpServer.Run(ctx)

	app.hub.Close()
	if disconnectErr := app.searchClient.Disconnect(); disconnectErr != nil {
		log.Warn().Err(disconnectErr).Msg("failed to stop search provider")
	}
	return err
}

func main() {
	config.LoadEnvFiles()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("log_level", cfg.LogLevel).
		Bool("redis", cfg.RedisURL != "").
		Msg("Starting websearch gateway")

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
		log.Error().Err(err).Msg("gateway stopped with error")
		return
	}
	log.Info().Msg("gateway exited cleanly")
}
