package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
)

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Render a saved search response the way prompts include it",
	Long:  `Read a search response JSON document (from --file or stdin) and print the formatted result block.`,
	RunE:  runFormat,
}

func init() {
	formatCmd.Flags().StringP("file", "f", "", "Response file (default: stdin)")
	formatCmd.Flags().StringP("query", "q", "", "Query the results were produced for")
	formatCmd.Flags().Int("summary-length", search.DefaultSummaryLength, "Token budget per result summary")
	formatCmd.Flags().Bool("prompt", false, "Wrap the results in the enriched prompt template")
}

func runFormat(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("file")
	query, _ := cmd.Flags().GetString("query")
	summaryLength, _ := cmd.Flags().GetInt("summary-length")
	asPrompt, _ := cmd.Flags().GetBool("prompt")

	in := cmd.InOrStdin()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open response file: %w", err)
		}
		defer f.Close()
		in = f
	}

	return formatResponse(cmd.OutOrStdout(), in, query, summaryLength, asPrompt)
}

func formatResponse(out io.Writer, in io.Reader, query string, summaryLength int, asPrompt bool) error {
	var resp search.Response
	if err := json.NewDecoder(in).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	formatted := search.FormatSearchResultsWithSummary(resp.Results, query, summaryLength)
	if asPrompt {
		formatted = search.BuildEnrichedPrompt(formatted, query)
	}
	_, err := fmt.Fprintln(out, formatted)
	return err
}
