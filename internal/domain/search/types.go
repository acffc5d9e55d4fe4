package search

import (
	"encoding/json"
	"time"
)

// Status is the phase of a search reported to UI clients.
type Status string

const (
	StatusSearching Status = "searching"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// StatusEvent is the event name status payloads are broadcast under.
const StatusEvent = "search:status"

// StatusPayload is broadcast on the session channel whenever a search changes phase.
type StatusPayload struct {
	Status Status `json:"status"`
	Query  string `json:"query"`
	Error  string `json:"error,omitempty"`
}

// Session identifies the notebook session a search belongs to.
type Session struct {
	ID string `json:"id"`
}

// Channel returns the broadcast channel name for the session.
func (s Session) Channel() string {
	return "session:" + s.ID
}

// Result is a single provider hit.
type Result struct {
	ID            string   `json:"id,omitempty"`
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Text          string   `json:"text"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Author        string   `json:"author,omitempty"`
	Score         *float64 `json:"score,omitempty"`
}

// Response is the provider response for one search call.
type Response struct {
	RequestID          string   `json:"requestId,omitempty"`
	ResolvedSearchType string   `json:"resolvedSearchType,omitempty"`
	Results            []Result `json:"results"`
}

// Request is the body sent to the upstream search API.
type Request struct {
	Query      string   `json:"query"`
	Type       string   `json:"type"`
	NumResults int      `json:"numResults"`
	Contents   Contents `json:"contents"`
}

// Contents selects what page content the upstream API returns.
type Contents struct {
	Text bool `json:"text"`
}

// NewRequest builds an auto-mode request asking for full text content.
func NewRequest(query string, numResults int) Request {
	return Request{
		Query:      query,
		Type:       "auto",
		NumResults: numResults,
		Contents:   Contents{Text: true},
	}
}

// CachedSearch is a memoized provider search exposed as a resource.
type CachedSearch struct {
	Query     string          `json:"query"`
	Response  json.RawMessage `json:"response"`
	Timestamp time.Time       `json:"timestamp"`
}

// ISOTimestamp renders the cache timestamp the way resource descriptors show it.
func (c CachedSearch) ISOTimestamp() string {
	return c.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z")
}

const (
	// DefaultNumResults is used when the caller does not ask for a count.
	DefaultNumResults = 10
	// MaxNumResults is the upper bound accepted by the search tool.
	MaxNumResults = 50
	// DefaultSummaryLength is the token budget for each result summary.
	DefaultSummaryLength = 300
	// MaxCachedSearches caps the provider's recent-search cache.
	MaxCachedSearches = 5
	// ToolName is the provider tool name for web search.
	ToolName = "search"
)
