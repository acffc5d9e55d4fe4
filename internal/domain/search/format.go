package search

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	// charsPerToken approximates how many characters one token budget unit covers.
	charsPerToken = 6
	// sentenceCutRatio is how far into the cut a period must sit to end there.
	sentenceCutRatio = 0.7
	ellipsis         = "..."
)

// TruncateContent shortens content to roughly maxLength tokens, preferring to end
// on a sentence and falling back to a word boundary with an ellipsis.
func TruncateContent(content string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultSummaryLength
	}
	limit := maxLength * charsPerToken
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}

	cut := runes[:limit]
	lastPeriod := lastIndexRune(cut, func(r rune) bool { return r == '.' })
	if lastPeriod >= 0 && float64(lastPeriod) >= float64(len(cut))*sentenceCutRatio {
		return string(cut[:lastPeriod+1])
	}

	// Leave room for the ellipsis so the result stays within the limit.
	room := cut
	if len(room) > len(ellipsis) {
		room = room[:len(room)-len(ellipsis)]
	}
	if lastSpace := lastIndexRune(room, unicode.IsSpace); lastSpace > 0 {
		room = room[:lastSpace]
	}
	return strings.TrimRightFunc(string(room), unicode.IsSpace) + ellipsis
}

func lastIndexRune(runes []rune, match func(rune) bool) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if match(runes[i]) {
			return i
		}
	}
	return -1
}

// FormatSearchResults renders results as a numbered block for inclusion in a prompt.
func FormatSearchResults(results []Result, query string) string {
	return formatSearchResults(results, query, DefaultSummaryLength)
}

// FormatSearchResultsWithSummary is FormatSearchResults with a custom summary budget.
func FormatSearchResultsWithSummary(results []Result, query string, summaryLength int) string {
	return formatSearchResults(results, query, summaryLength)
}

func formatSearchResults(results []Result, query string, summaryLength int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Web search results for %q:\n\n", query)

	if len(results) == 0 {
		b.WriteString("No relevant results found.")
		return b.String()
	}

	for i, result := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Result %d]\n", i+1)
		fmt.Fprintf(&b, "Source: %s\n", result.URL)
		fmt.Fprintf(&b, "Title: %s\n", result.Title)
		fmt.Fprintf(&b, "Summary: %s", TruncateContent(result.Text, summaryLength))
	}

	fmt.Fprintf(&b, "\n\nFound %d relevant results.", len(results))
	return b.String()
}

// BuildEnrichedPrompt wraps formatted results and the user's query in guidance for the model.
func BuildEnrichedPrompt(formattedResults, query string) string {
	var b strings.Builder
	b.WriteString("I searched the web for information related to your request. Here is what I found:\n\n")
	b.WriteString(formattedResults)
	b.WriteString("\n\nOriginal request: ")
	b.WriteString(query)
	b.WriteString("\n\nPlease respond to the original request using the search results above:\n")
	b.WriteString("1. Use the information from the search results to answer accurately\n")
	b.WriteString("2. Cite your sources by referencing the [Result N] markers and their URLs\n")
	b.WriteString("3. If the results are not relevant, say so and answer from your general knowledge\n")
	b.WriteString("4. Offer to search again if the user needs more or different information")
	return b.String()
}
