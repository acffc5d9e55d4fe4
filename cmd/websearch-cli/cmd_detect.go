package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
)

var errNoTrigger = errors.New("no search trigger found")

var detectCmd = &cobra.Command{
	Use:   "detect <text>",
	Short: "Show what a prompt would search for",
	Long:  `Report the search query extracted from an "@web" command or the first URL in the text. Exits non-zero when neither is present.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDetect(cmd.OutOrStdout(), strings.Join(args, " "))
	},
}

func runDetect(out io.Writer, input string) error {
	query, ok := search.DetectSearchCommand(input)
	if !ok {
		return errNoTrigger
	}
	_, err := fmt.Fprintln(out, query)
	return err
}
