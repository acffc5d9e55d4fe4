package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a web search through the provider",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntP("num-results", "n", 0, "Number of results (1-50, default from SEARCH_DEFAULT_NUM_RESULTS)")
	searchCmd.Flags().String("format", "text", "Output format: text, json")
}

func runSearch(cmd *cobra.Command, args []string) error {
	numResults, _ := cmd.Flags().GetInt("num-results")
	if numResults < 0 || numResults > search.MaxNumResults {
		return fmt.Errorf("num-results must be between 1 and %d", search.MaxNumResults)
	}
	format, _ := cmd.Flags().GetString("format")

	ctx := cmd.Context()
	service, client, err := newSearchService(ctx, cmd)
	if err != nil {
		return err
	}
	defer disconnect(client)

	query := strings.Join(args, " ")
	resp, err := service.Search(ctx, query, numResults)
	if err != nil {
		return err
	}
	return writeResponse(cmd.OutOrStdout(), query, resp, format)
}

func writeResponse(out io.Writer, query string, resp *search.Response, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "text":
		_, err := fmt.Fprintln(out, search.FormatSearchResults(resp.Results, query))
		return err
	default:
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}
}
