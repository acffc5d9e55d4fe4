package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/srcbook/websearch-mcp/pkg/observability"
)

// Config holds configuration shared by the provider, gateway and CLI binaries
type Config struct {
	LogLevel  string `env:"WEBSEARCH_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"WEBSEARCH_LOG_FORMAT" envDefault:"json"` // json or console

	// Upstream search API, used by the provider process only
	ExaAPIKey         string        `env:"EXA_API_KEY"`
	ExaSearchEndpoint string        `env:"EXA_SEARCH_ENDPOINT" envDefault:"https://api.exa.ai/search"`
	ExaHTTPTimeout    time.Duration `env:"EXA_HTTP_TIMEOUT" envDefault:"25s"`

	ExaRetryMaxAttempts   int           `env:"EXA_RETRY_MAX_ATTEMPTS" envDefault:"3"`
	ExaRetryInitialDelay  time.Duration `env:"EXA_RETRY_INITIAL_DELAY" envDefault:"250ms"`
	ExaRetryMaxDelay      time.Duration `env:"EXA_RETRY_MAX_DELAY" envDefault:"4s"`
	ExaRetryBackoffFactor float64       `env:"EXA_RETRY_BACKOFF_FACTOR" envDefault:"2"`

	ExaCBFailureThreshold uint32        `env:"EXA_CB_FAILURE_THRESHOLD" envDefault:"5"`
	ExaCBOpenTimeout      time.Duration `env:"EXA_CB_OPEN_TIMEOUT" envDefault:"30s"`
	ExaCBMaxHalfOpen      uint32        `env:"EXA_CB_MAX_HALF_OPEN" envDefault:"2"`

	// Search facade
	SearchTimeout       time.Duration `env:"SEARCH_TIMEOUT" envDefault:"30s"`
	SearchNumResults    int           `env:"SEARCH_DEFAULT_NUM_RESULTS" envDefault:"10"`
	SearchSummaryLength int           `env:"SEARCH_SUMMARY_MAX_LENGTH" envDefault:"300"`

	// Provider process launch
	ProviderConfigPath string   `env:"SEARCH_PROVIDER_CONFIG" envDefault:"configs/search-provider.yml"`
	ProviderCommand    string   `env:"SEARCH_PROVIDER_COMMAND" envDefault:"websearch-provider"`
	ProviderArgs       []string `env:"SEARCH_PROVIDER_ARGS" envSeparator:" "`
	// ProviderHTTPPort additionally serves the provider over streamable HTTP when set
	ProviderHTTPPort string `env:"PROVIDER_HTTP_PORT"`

	// Gateway
	HTTPPort string `env:"GATEWAY_HTTP_PORT" envDefault:"8095"`
	RedisURL string `env:"REDIS_URL"`

	// Telemetry
	ServiceVersion  string  `env:"SERVICE_VERSION" envDefault:"dev"`
	Environment     string  `env:"ENVIRONMENT" envDefault:"development"`
	TracingEnabled  bool    `env:"OTEL_TRACING_ENABLED" envDefault:"false"`
	OTLPMetrics     bool    `env:"OTEL_METRICS_ENABLED" envDefault:"false"`
	OTLPEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTLPSampleRatio float64 `env:"OTEL_SAMPLING_RATE" envDefault:"1.0"`
	PIILevel        string  `env:"TELEMETRY_PII_LEVEL" envDefault:"hashed"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(os.Getenv("WEBSEARCH_LOG_LEVEL")) == "" {
		if global := strings.TrimSpace(os.Getenv("LOG_LEVEL")); global != "" {
			cfg.LogLevel = global
		}
	}
	if strings.TrimSpace(os.Getenv("WEBSEARCH_LOG_FORMAT")) == "" {
		if global := strings.TrimSpace(os.Getenv("LOG_FORMAT")); global != "" {
			cfg.LogFormat = global
		}
	}

	if cfg.SearchTimeout <= 0 {
		return nil, fmt.Errorf("SEARCH_TIMEOUT must be positive, got %s", cfg.SearchTimeout)
	}
	if cfg.SearchNumResults < 1 || cfg.SearchNumResults > 50 {
		return nil, fmt.Errorf("SEARCH_DEFAULT_NUM_RESULTS must be between 1 and 50, got %d", cfg.SearchNumResults)
	}
	if cfg.ExaRetryMaxAttempts < 1 {
		cfg.ExaRetryMaxAttempts = 1
	}
	return cfg, nil
}

// Observability builds the OTEL settings for one binary
func (c *Config) Observability(serviceName string) observability.Config {
	obs := observability.DefaultConfig(serviceName)
	obs.ServiceVersion = c.ServiceVersion
	obs.Environment = c.Environment
	obs.TracingEnabled = c.TracingEnabled
	obs.MetricsEnabled = c.OTLPMetrics
	obs.OTLPEndpoint = c.OTLPEndpoint
	obs.SamplingRate = c.OTLPSampleRatio
	obs.PIILevel = c.PIILevel
	return obs
}

// LoadEnvFiles overlays .env files from the working directory and its parent.
// Missing files are skipped.
func LoadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
