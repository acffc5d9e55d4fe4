package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/srcbook/websearch-mcp/internal/infrastructure"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/config"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/mcpclient"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Print the configuration resolved from the environment, .env files and the provider launch file. Secrets are masked.`,
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

type effectiveConfig struct {
	Search struct {
		Timeout       string `yaml:"timeout"`
		NumResults    int    `yaml:"num_results"`
		SummaryLength int    `yaml:"summary_length"`
	} `yaml:"search"`
	Exa struct {
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"exa"`
	Provider mcpclient.LaunchConfig `yaml:"provider"`
	Gateway  struct {
		HTTPPort string `yaml:"http_port"`
		Redis    bool   `yaml:"redis"`
	} `yaml:"gateway"`
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	launch, err := infrastructure.ProvideLaunchConfig(cfg)
	if err != nil {
		return fmt.Errorf("load provider launch config: %w", err)
	}
	return writeConfig(cmd.OutOrStdout(), cfg, launch)
}

func writeConfig(out io.Writer, cfg *config.Config, launch mcpclient.LaunchConfig) error {
	var view effectiveConfig
	view.Search.Timeout = cfg.SearchTimeout.String()
	view.Search.NumResults = cfg.SearchNumResults
	view.Search.SummaryLength = cfg.SearchSummaryLength
	view.Exa.Endpoint = cfg.ExaSearchEndpoint
	view.Exa.APIKey = maskSecret(cfg.ExaAPIKey)
	view.Gateway.HTTPPort = cfg.HTTPPort
	view.Gateway.Redis = cfg.RedisURL != ""

	masked := launch
	masked.Env = make(map[string]string, len(launch.Env))
	for k, v := range launch.Env {
		masked.Env[k] = maskSecret(v)
	}
	view.Provider = masked

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(view)
}

func maskSecret(value string) string {
	switch {
	case value == "":
		return ""
	case len(value) <= 8:
		return "****"
	default:
		return value[:4] + "****"
	}
}
