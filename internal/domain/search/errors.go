package search

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind categorizes search failures.
type ErrorKind int

const (
	// KindSearch is a generic search failure wrapping the underlying cause.
	KindSearch ErrorKind = iota
	// KindValidation means the provider returned a malformed response.
	KindValidation
	// KindConnection means the provider could not be reached.
	KindConnection
	// KindTimeout means the search deadline elapsed first.
	KindTimeout
	// KindProtocol carries a JSON-RPC error code from the provider.
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindProtocol:
		return "protocol"
	default:
		return "search"
	}
}

// JSON-RPC error codes used at the provider boundary.
const (
	CodeInvalidRequest int64 = -32600
	CodeMethodNotFound int64 = -32601
	CodeInvalidParams  int64 = -32602
	CodeInternalError  int64 = -32603
)

// SearchError is returned by every failing search. Query is always set.
type SearchError struct {
	Kind    ErrorKind
	Query   string
	Code    int64
	Message string
	Err     error
}

func (e *SearchError) Error() string {
	return e.Message
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// NewSearchError wraps a generic failure.
func NewSearchError(query string, err error) *SearchError {
	msg := "Search failed"
	if err != nil {
		msg = fmt.Sprintf("Search failed: %s", err.Error())
	}
	return &SearchError{Kind: KindSearch, Query: query, Message: msg, Err: err}
}

// NewValidationError reports a response that does not have the expected shape.
func NewValidationError(query string, reason string) *SearchError {
	return &SearchError{
		Kind:    KindValidation,
		Query:   query,
		Message: fmt.Sprintf("Invalid search response: %s", reason),
	}
}

// NewConnectionError reports that the provider could not be reached.
func NewConnectionError(query string, err error) *SearchError {
	return &SearchError{
		Kind:    KindConnection,
		Query:   query,
		Message: "Failed to connect to search service",
		Err:     err,
	}
}

// NewTimeoutError reports that the search did not finish before its deadline.
func NewTimeoutError(query string, timeout time.Duration) *SearchError {
	return &SearchError{
		Kind:    KindTimeout,
		Query:   query,
		Message: fmt.Sprintf("Search request timed out after %s", timeout),
	}
}

// NewProtocolError reports a typed JSON-RPC failure from the provider.
func NewProtocolError(query string, code int64, message string) *SearchError {
	return &SearchError{
		Kind:    KindProtocol,
		Query:   query,
		Code:    code,
		Message: message,
	}
}

// IsKind reports whether err is a SearchError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		return searchErr.Kind == kind
	}
	return false
}

var connectionMarkers = []string{
	"connection",
	"connect",
	"broken pipe",
	"eof",
	"executable file not found",
	"no such file or directory",
}

// IsConnectionFailure matches failure messages that indicate the transport is down.
func IsConnectionFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range connectionMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
