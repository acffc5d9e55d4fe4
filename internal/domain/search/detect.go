package search

import (
	"regexp"
	"strings"
)

var (
	webCommandPattern = regexp.MustCompile(`(?s)@web\s+(.+)$`)
	// The last character may not be punctuation, so "page?x=1." stops before the dot.
	urlPattern = regexp.MustCompile(`https?://[^\s<>"'{}|\\^\[\]()]*[^\s<>"'{}|\\^\[\]().,;:!?]`)
)

// DetectSearchCommand returns the text to search for, if the input asks for one.
// An explicit "@web <text>" command takes precedence over a bare URL.
func DetectSearchCommand(input string) (string, bool) {
	if m := webCommandPattern.FindStringSubmatch(input); m != nil {
		if query := strings.TrimSpace(m[1]); query != "" {
			return query, true
		}
	}
	if url := urlPattern.FindString(input); url != "" {
		return url, true
	}
	return "", false
}
