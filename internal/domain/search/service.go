package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/srcbook/websearch-mcp/pkg/telemetry"
)

// DefaultTimeout bounds a single search call end to end.
const DefaultTimeout = 30 * time.Second

const unknownErrorMessage = "Unknown error occurred"

var tracer = otel.Tracer("github.com/srcbook/websearch-mcp/internal/domain/search")

// Provider invokes the search tool on the provider process and returns its raw output.
type Provider interface {
	CallSearch(ctx context.Context, query string, numResults int) (json.RawMessage, error)
}

// Broadcaster pushes an event to every UI client listening on a channel.
type Broadcaster interface {
	Broadcast(ctx context.Context, channel, event string, payload any) error
}

// ServiceConfig tunes the search facade.
type ServiceConfig struct {
	Timeout       time.Duration
	NumResults    int
	SummaryLength int
	Sanitizer     *telemetry.Sanitizer
	// OnSearch, if set, observes every finished search with "ok" or the error kind.
	OnSearch func(outcome string, elapsed time.Duration)
}

// Service detects search intents, runs searches through the provider and folds
// the results into prompts.
type Service struct {
	provider    Provider
	broadcaster Broadcaster
	cfg         ServiceConfig
}

// NewService creates a new search facade.
func NewService(provider Provider, broadcaster Broadcaster, cfg ServiceConfig) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.NumResults <= 0 {
		cfg.NumResults = DefaultNumResults
	}
	if cfg.SummaryLength <= 0 {
		cfg.SummaryLength = DefaultSummaryLength
	}
	return &Service{
		provider:    provider,
		broadcaster: broadcaster,
		cfg:         cfg,
	}
}

type callOutcome struct {
	raw json.RawMessage
	err error
}

// Search runs the provider search tool. The call is abandoned and cancelled once
// the configured timeout elapses; the caller then gets a KindTimeout error.
func (s *Service) Search(ctx context.Context, query string, numResults int) (resp *Response, err error) {
	if s.cfg.OnSearch != nil {
		start := time.Now()
		defer func() {
			outcome := "ok"
			var searchErr *SearchError
			if errors.As(err, &searchErr) {
				outcome = searchErr.Kind.String()
			} else if err != nil {
				outcome = KindSearch.String()
			}
			s.cfg.OnSearch(outcome, time.Since(start))
		}()
	}

	if strings.TrimSpace(query) == "" {
		return nil, &SearchError{Kind: KindValidation, Query: query, Message: "Search query must not be empty"}
	}
	if numResults <= 0 {
		numResults = s.cfg.NumResults
	}

	ctx, span := tracer.Start(ctx, "search.Search", trace.WithAttributes(
		attribute.Int("search.num_results", numResults),
	))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	done := make(chan callOutcome, 1)
	go func() {
		raw, err := s.provider.CallSearch(callCtx, query, numResults)
		done <- callOutcome{raw: raw, err: err}
	}()

	var out callOutcome
	select {
	case out = <-done:
	case <-callCtx.Done():
		return nil, s.fail(span, s.deadlineError(ctx, query))
	}

	if out.err != nil {
		return nil, s.fail(span, s.classify(ctx, callCtx, query, out.err))
	}

	decoded, decodeErr := decodeResponse(query, out.raw)
	if decodeErr != nil {
		return nil, s.fail(span, decodeErr)
	}
	span.SetAttributes(attribute.Int("search.result_count", len(decoded.Results)))
	return decoded, nil
}

func (s *Service) deadlineError(parent context.Context, query string) *SearchError {
	if parent.Err() != nil {
		return NewSearchError(query, parent.Err())
	}
	return NewTimeoutError(query, s.cfg.Timeout)
}

func (s *Service) classify(parent, callCtx context.Context, query string, err error) *SearchError {
	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		return searchErr
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return s.deadlineError(parent, query)
	}
	if IsConnectionFailure(err) {
		return NewConnectionError(query, err)
	}
	return NewSearchError(query, err)
}

func (s *Service) fail(span trace.Span, err *SearchError) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Kind.String())
	return err
}

func decodeResponse(query string, raw json.RawMessage) (*Response, *SearchError) {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, NewValidationError(query, "response is not a JSON object")
	}
	if _, ok := shape["results"]; !ok {
		return nil, NewValidationError(query, "response has no results field")
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, NewValidationError(query, fmt.Sprintf("results are malformed: %v", err))
	}
	return &resp, nil
}

// EnrichPromptWithWebResults returns the query augmented with web results when it
// contains a search trigger. It never fails: on any error the original query is
// returned and an error status is broadcast to the session.
func (s *Service) EnrichPromptWithWebResults(ctx context.Context, session Session, query string) (prompt string) {
	searchQuery, ok := DetectSearchCommand(query)
	if !ok {
		return query
	}

	defer func() {
		if r := recover(); r != nil {
			s.reportFailure(ctx, session, searchQuery, fmt.Errorf("panic during search enrichment: %v", r))
			prompt = query
		}
	}()

	s.broadcast(ctx, session, StatusPayload{Status: StatusSearching, Query: searchQuery})

	resp, err := s.Search(ctx, searchQuery, s.cfg.NumResults)
	if err != nil {
		s.reportFailure(ctx, session, searchQuery, err)
		return query
	}

	s.broadcast(ctx, session, StatusPayload{Status: StatusComplete, Query: searchQuery})

	log.Info().
		Str("session_id", session.ID).
		Str("query", s.sanitize(searchQuery)).
		Int("result_count", len(resp.Results)).
		Msg("prompt enriched with web results")

	formatted := formatSearchResults(resp.Results, searchQuery, s.cfg.SummaryLength)
	return BuildEnrichedPrompt(formatted, query)
}

func (s *Service) reportFailure(ctx context.Context, session Session, searchQuery string, err error) {
	message := unknownErrorMessage
	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		message = searchErr.Message
	}

	s.broadcast(ctx, session, StatusPayload{Status: StatusError, Query: searchQuery, Error: message})

	event := log.Error().
		Err(err).
		Str("session_id", session.ID).
		Str("query", s.sanitize(searchQuery))
	if searchErr != nil {
		event = event.Str("error_kind", searchErr.Kind.String())
	}
	event.Msg("web search enrichment failed, falling back to original prompt")
}

func (s *Service) broadcast(ctx context.Context, session Session, payload StatusPayload) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Broadcast(ctx, session.Channel(), StatusEvent, payload); err != nil {
		log.Warn().
			Err(err).
			Str("channel", session.Channel()).
			Str("status", string(payload.Status)).
			Msg("failed to broadcast search status")
	}
}

func (s *Service) sanitize(query string) string {
	if s.cfg.Sanitizer == nil {
		return query
	}
	return s.cfg.Sanitizer.SanitizeQuery(query)
}
