package infrastructure

import (
	"context"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/broadcast"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/config"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/exa"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/mcpclient"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/metrics"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/searchcache"
	"github.com/srcbook/websearch-mcp/pkg/observability"
	"github.com/srcbook/websearch-mcp/pkg/observability/relay"
)

const (
	ProviderServiceName = "websearch-provider"
	GatewayServiceName  = "websearch-gateway"
)

// ProviderInfrastructure provides the dependencies of the search provider process
var ProviderInfrastructure = wire.NewSet(
	ProvideConfig,
	ProvideProviderObservability,
	ProvideExaClient,
	searchcache.NewDefault,
)

// GatewayInfrastructure provides the dependencies of the notebook gateway
var GatewayInfrastructure = wire.NewSet(
	ProvideConfig,
	ProvideGatewayObservability,
	ProvideLaunchConfig,
	ProvideMCPClient,
	wire.Bind(new(search.Provider), new(*mcpclient.Client)),
	broadcast.NewHub,
	ProvideRedisClient,
	ProvideBroadcaster,
	ProvideRelay,
	ProvideServiceConfig,
)

// ProvideConfig loads and provides the application configuration
func ProvideConfig() (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideProviderObservability initializes tracing for the provider process
func ProvideProviderObservability(ctx context.Context, cfg *config.Config) (*observability.Provider, error) {
	return observability.Init(ctx, cfg.Observability(ProviderServiceName))
}

// ProvideGatewayObservability initializes tracing for the gateway
func ProvideGatewayObservability(ctx context.Context, cfg *config.Config) (*observability.Provider, error) {
	return observability.Init(ctx, cfg.Observability(GatewayServiceName))
}

// ProvideExaClient provides the upstream search client
func ProvideExaClient(cfg *config.Config, obs *observability.Provider) *exa.Client {
	retry := exa.DefaultRetryConfig()
	retry.MaxAttempts = cfg.ExaRetryMaxAttempts
	retry.InitialDelay = cfg.ExaRetryInitialDelay
	retry.MaxDelay = cfg.ExaRetryMaxDelay
	retry.BackoffFactor = cfg.ExaRetryBackoffFactor

	return exa.NewClient(exa.ClientConfig{
		APIKey:             cfg.ExaAPIKey,
		Endpoint:           cfg.ExaSearchEndpoint,
		HTTPTimeout:        cfg.ExaHTTPTimeout,
		Retry:              retry,
		CBFailureThreshold: cfg.ExaCBFailureThreshold,
		CBOpenTimeout:      cfg.ExaCBOpenTimeout,
		CBMaxHalfOpen:      cfg.ExaCBMaxHalfOpen,
		Sanitizer:          obs.Sanitizer,
	})
}

// ProvideLaunchConfig loads the provider launch file, falling back to env settings
func ProvideLaunchConfig(cfg *config.Config) (mcpclient.LaunchConfig, error) {
	fallback := mcpclient.LaunchConfig{
		Name:    ProviderServiceName,
		Command: cfg.ProviderCommand,
		Args:    cfg.ProviderArgs,
	}
	return mcpclient.LoadLaunchConfig(cfg.ProviderConfigPath, fallback)
}

// ProvideMCPClient provides the lazily connected provider client
func ProvideMCPClient(launch mcpclient.LaunchConfig) *mcpclient.Client {
	return mcpclient.NewClient(launch, mcpclient.CommandTransport(launch))
}

// ProvideRedisClient connects to Redis when REDIS_URL is set; otherwise it returns nil
// and the gateway broadcasts to its local hub only.
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	return broadcast.NewRedisClient(ctx, cfg.RedisURL)
}

// ProvideBroadcaster picks Redis fan-out when available and the local hub otherwise
func ProvideBroadcaster(hub *broadcast.Hub, rdb *redis.Client) search.Broadcaster {
	if rdb != nil {
		log.Info().Msg("search status broadcasts published through redis")
		return broadcast.NewRedisBroadcaster(rdb)
	}
	return hub
}

// ProvideRelay returns the Redis to hub relay, or nil without Redis
func ProvideRelay(rdb *redis.Client, hub *broadcast.Hub, obs *observability.Provider) (*broadcast.Relay, error) {
	if rdb == nil {
		return nil, nil
	}
	instr, err := relay.NewInstrumenter(obs.Tracer, obs.Meter, GatewayServiceName)
	if err != nil {
		return nil, err
	}
	return broadcast.NewRelay(rdb, hub, instr), nil
}

// ProvideServiceConfig tunes the search facade from config
func ProvideServiceConfig(cfg *config.Config, obs *observability.Provider) search.ServiceConfig {
	return search.ServiceConfig{
		Timeout:       cfg.SearchTimeout,
		NumResults:    cfg.SearchNumResults,
		SummaryLength: cfg.SearchSummaryLength,
		Sanitizer:     obs.Sanitizer,
		OnSearch: func(outcome string, elapsed time.Duration) {
			metrics.RecordSearch(outcome, elapsed.Seconds())
		},
	}
}
