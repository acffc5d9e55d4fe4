package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "websearch-cli",
	Short: "Developer tool for the websearch provider and prompt enrichment",
	Long: `websearch-cli drives the same search facade the notebook gateway uses.

It spawns the search provider over stdio, runs searches, and shows how
prompts get enriched with web results.

Examples:
  websearch-cli detect "@web latest go release"
  websearch-cli search "go 1.25 release notes" -n 3
  websearch-cli enrich "summarize https://go.dev/blog"
  websearch-cli format -f response.json -q "go generics"
  websearch-cli config show`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(formatCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("provider-config", "", "Provider launch file (overrides SEARCH_PROVIDER_CONFIG)")
}
