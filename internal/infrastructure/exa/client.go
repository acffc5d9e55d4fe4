package exa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/metrics"
	"github.com/srcbook/websearch-mcp/pkg/telemetry"
)

const (
	// DefaultEndpoint is the hosted Exa search API.
	DefaultEndpoint = "https://api.exa.ai/search"
	providerName    = "exa"
	userAgent       = "websearch-mcp/1.0"
)

// ErrMissingAPIKey is returned when no Exa API key has been configured.
var ErrMissingAPIKey = errors.New("EXA_API_KEY environment variable is not set")

var tracer = otel.Tracer("github.com/srcbook/websearch-mcp/internal/infrastructure/exa")

// UpstreamStatusError is returned for any non-2xx answer from Exa.
type UpstreamStatusError struct {
	StatusCode int
	StatusText string
	Body       string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("Exa API error: %s", e.StatusText)
}

// Temporary reports whether the status is worth retrying.
func (e *UpstreamStatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// ClientConfig captures the knobs exposed to operators for the Exa client.
type ClientConfig struct {
	APIKey      string
	Endpoint    string
	HTTPTimeout time.Duration
	Retry       RetryConfig

	CBFailureThreshold uint32
	CBOpenTimeout      time.Duration
	CBMaxHalfOpen      uint32

	Sanitizer *telemetry.Sanitizer
}

// Client calls the Exa search API.
type Client struct {
	cfg     ClientConfig
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

// NewClient wires the HTTP client and circuit breaker.
func NewClient(cfg ClientConfig) *Client {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 25 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.CBFailureThreshold == 0 {
		cfg.CBFailureThreshold = 5
	}
	if cfg.CBOpenTimeout <= 0 {
		cfg.CBOpenTimeout = 30 * time.Second
	}
	if cfg.CBMaxHalfOpen == 0 {
		cfg.CBMaxHalfOpen = 1
	}

	httpClient := resty.New().
		SetHeader("User-Agent", userAgent).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.HTTPTimeout).
		SetRetryCount(0)

	threshold := cfg.CBFailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        providerName,
		MaxRequests: cfg.CBMaxHalfOpen,
		Timeout:     cfg.CBOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("service", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			metrics.SetCircuitBreakerState(name, to.String())
		},
		IsSuccessful: countsAsSuccess,
	})
	metrics.SetCircuitBreakerState(providerName, gobreaker.StateClosed.String())

	return &Client{cfg: cfg, http: httpClient, breaker: breaker}
}

// HasAPIKey reports whether a key is configured.
func (c *Client) HasAPIKey() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

// Search posts a search request and returns the upstream JSON body untouched.
func (c *Client) Search(ctx context.Context, query string, numResults int) (json.RawMessage, error) {
	if !c.HasAPIKey() {
		return nil, ErrMissingAPIKey
	}

	ctx, span := tracer.Start(ctx, "exa.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("search.num_results", numResults))

	log.Debug().
		Str("service", providerName).
		Str("endpoint", c.cfg.Endpoint).
		Str("query", c.sanitize(query)).
		Int("num_results", numResults).
		Msg("Exa search request")

	body := search.NewRequest(query, numResults)
	raw, err := WithRetry(ctx, c.cfg.Retry, "exa_search", func() (json.RawMessage, error) {
		out, err := c.breaker.Execute(func() (interface{}, error) {
			return c.post(ctx, body)
		})
		if err != nil {
			return nil, err
		}
		return out.(json.RawMessage), nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exa search failed")
		return nil, err
	}
	return raw, nil
}

func (c *Client) post(ctx context.Context, body search.Request) (json.RawMessage, error) {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.RecordExternalProviderLatency(providerName, status, time.Since(start).Seconds())
	}()

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.cfg.APIKey).
		SetBody(body).
		Post(c.cfg.Endpoint)
	if err != nil {
		log.Error().Err(err).Str("service", providerName).Str("endpoint", c.cfg.Endpoint).Msg("failed to query Exa search API")
		return nil, fmt.Errorf("failed to query Exa search API: %w", err)
	}
	status = fmt.Sprintf("%d", resp.StatusCode())

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		statusErr := &UpstreamStatusError{
			StatusCode: resp.StatusCode(),
			StatusText: statusText(resp),
			Body:       c.redact(resp.String()),
		}
		log.Error().
			Int("status", resp.StatusCode()).
			Str("service", providerName).
			Str("response", statusErr.Body).
			Msg("Exa search API error")
		return nil, statusErr
	}

	raw := resp.Body()
	if !json.Valid(raw) {
		return nil, fmt.Errorf("Exa API returned a non-JSON body")
	}
	return json.RawMessage(raw), nil
}

// countsAsSuccess keeps caller mistakes (4xx other than 429) from tripping the breaker.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	var statusErr *UpstreamStatusError
	if errors.As(err, &statusErr) {
		return !statusErr.Temporary()
	}
	return errors.Is(err, context.Canceled)
}

// statusText renders "429 Too Many Requests" style text even when the server
// sends a bare code.
func statusText(resp *resty.Response) string {
	if text := strings.TrimSpace(resp.Status()); text != "" {
		return text
	}
	return fmt.Sprintf("%d %s", resp.StatusCode(), http.StatusText(resp.StatusCode()))
}

func (c *Client) sanitize(query string) string {
	if c.cfg.Sanitizer == nil {
		return query
	}
	return c.cfg.Sanitizer.SanitizeQuery(query)
}

func (c *Client) redact(body string) string {
	if c.cfg.Sanitizer == nil {
		return body
	}
	return c.cfg.Sanitizer.RedactSecrets(body)
}
