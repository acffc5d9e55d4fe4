package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectSearchCommand(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"web command", "@web latest go release", "latest go release", true},
		{"web command mid sentence", "please @web  rust async runtimes  ", "rust async runtimes", true},
		{"web command multiline", "@web first line\nsecond line", "first line\nsecond line", true},
		{"web command wins over url", "@web compare https://a.example.com", "compare https://a.example.com", true},
		{"bare url", "summarize https://go.dev/blog/loopvar please", "https://go.dev/blog/loopvar", true},
		{"url trailing punctuation", "see http://example.com/page?x=1.", "http://example.com/page?x=1", true},
		{"url inside parens", "(https://example.com/a)", "https://example.com/a", true},
		{"first url only", "https://one.example.com and https://two.example.com", "https://one.example.com", true},
		{"web without text", "@web   ", "", false},
		{"web glued to word", "@webfoo bar", "", false},
		{"plain text", "what is the capital of france", "", false},
		{"empty", "", "", false},
		{"non http scheme", "ftp://example.com/file", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, ok := DetectSearchCommand(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, query)
		})
	}
}
