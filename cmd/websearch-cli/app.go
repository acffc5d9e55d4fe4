package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
	"github.com/srcbook/websearch-mcp/internal/infrastructure"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/config"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/logger"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/mcpclient"
	"github.com/srcbook/websearch-mcp/pkg/observability"
)

// statusPrinter shows search status events on stderr in place of a websocket.
type statusPrinter struct {
	out io.Writer
}

func (p statusPrinter) Broadcast(_ context.Context, channel, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(p.out, "[%s] %s %s\n", channel, event, data)
	return err
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	config.LoadEnvFiles()
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if path, _ := cmd.Flags().GetString("provider-config"); path != "" {
		cfg.ProviderConfigPath = path
	}

	level := "warn"
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	logger.Init(level, "console", os.Stderr)
	return cfg, nil
}

// newSearchService wires the facade to a freshly spawned provider. The caller
// must Disconnect the returned client.
func newSearchService(ctx context.Context, cmd *cobra.Command) (*search.Service, *mcpclient.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	obs, err := observability.Init(ctx, observability.DefaultConfig("websearch-cli"))
	if err != nil {
		return nil, nil, err
	}

	launch, err := infrastructure.ProvideLaunchConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("load provider launch config: %w", err)
	}
	log.Debug().Str("command", launch.Command).Strs("args", launch.Args).Msg("provider launch config")

	client := infrastructure.ProvideMCPClient(launch)
	service := search.NewService(client, statusPrinter{out: cmd.ErrOrStderr()}, infrastructure.ProvideServiceConfig(cfg, obs))
	return service, client, nil
}

func disconnect(client *mcpclient.Client) {
	if err := client.Disconnect(); err != nil {
		log.Debug().Err(err).Msg("provider disconnect")
	}
}
