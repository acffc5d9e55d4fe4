package observability

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Config holds tracing and OTLP metric settings for one websearch binary
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string // development, staging, production
	TracingEnabled bool
	MetricsEnabled bool
	OTLPEndpoint   string
	OTLPHeaders    map[string]string
	SamplingRate   float64 // 0.0 - 1.0
	PIILevel       string  // none|hashed|full

	TraceBatchTimeout time.Duration
	MetricInterval    time.Duration
	ResourceAttrs     []attribute.KeyValue
}

// DefaultConfig returns a config with export disabled; binaries opt in through env
func DefaultConfig(serviceName string) Config {
	return Config{
		ServiceName:       serviceName,
		ServiceVersion:    "dev",
		Environment:       "development",
		OTLPEndpoint:      "localhost:4318",
		SamplingRate:      1.0,
		PIILevel:          "hashed",
		TraceBatchTimeout: 5 * time.Second,
		MetricInterval:    15 * time.Second,
	}
}
