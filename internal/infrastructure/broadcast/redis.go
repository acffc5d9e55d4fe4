package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/srcbook/websearch-mcp/internal/infrastructure/metrics"
	"github.com/srcbook/websearch-mcp/pkg/observability/relay"
)

// SessionPattern matches every session channel.
const SessionPattern = "session:*"

// NewRedisClient parses a redis:// URL and checks the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// RedisBroadcaster publishes events to Redis so every gateway instance can
// relay them to its own subscribers.
type RedisBroadcaster struct {
	rdb *redis.Client
}

// NewRedisBroadcaster creates a broadcaster publishing through rdb.
func NewRedisBroadcaster(rdb *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{rdb: rdb}
}

// Broadcast publishes the encoded envelope on channel.
func (b *RedisBroadcaster) Broadcast(ctx context.Context, channel, event string, payload any) error {
	frame, err := Encode(event, payload)
	if err != nil {
		metrics.RecordBroadcast(event, "error")
		return err
	}
	if err := b.rdb.Publish(ctx, channel, frame).Err(); err != nil {
		metrics.RecordBroadcast(event, "error")
		return fmt.Errorf("redis publish to %s failed: %w", channel, err)
	}
	metrics.RecordBroadcast(event, "ok")
	return nil
}

// Relay copies session events published on Redis into the local hub.
type Relay struct {
	rdb   *redis.Client
	hub   *Hub
	instr *relay.Instrumenter
}

// NewRelay creates a relay; instr may be nil.
func NewRelay(rdb *redis.Client, hub *Hub, instr *relay.Instrumenter) *Relay {
	return &Relay{rdb: rdb, hub: hub, instr: instr}
}

// Run relays messages until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.rdb.PSubscribe(ctx, SessionPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe failed: %w", err)
	}

	if r.instr != nil {
		defer r.instr.TrackLoop(ctx, "redis")()
	}
	log.Info().Str("pattern", SessionPattern).Msg("redis relay started")

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("redis relay stopped")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("redis subscription closed")
			}
			if err := r.deliver(ctx, msg); err != nil {
				log.Warn().Err(err).Str("channel", msg.Channel).Msg("failed to relay event")
			}
		}
	}
}

func (r *Relay) deliver(ctx context.Context, msg *redis.Message) error {
	fn := func(context.Context) error {
		_, err := r.hub.Deliver(msg.Channel, []byte(msg.Payload))
		return err
	}
	if r.instr == nil {
		return fn(ctx)
	}
	return r.instr.InstrumentDelivery(ctx, "redis", msg.Channel, fn)
}
