package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <prompt>",
	Short: "Print the prompt as the notebook would send it to the model",
	Long: `Enrich a prompt with web results when it contains "@web" or a URL.
Search failures are reported on stderr and the prompt is printed unchanged.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().String("session", "cli", "Session id used for status events")
}

func runEnrich(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")
	if _, ok := search.DetectSearchCommand(prompt); !ok {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), prompt)
		return err
	}

	sessionID, _ := cmd.Flags().GetString("session")

	ctx := cmd.Context()
	service, client, err := newSearchService(ctx, cmd)
	if err != nil {
		return err
	}
	defer disconnect(client)

	enriched := service.EnrichPromptWithWebResults(ctx, search.Session{ID: sessionID}, prompt)
	_, err = fmt.Fprintln(cmd.OutOrStdout(), enriched)
	return err
}
