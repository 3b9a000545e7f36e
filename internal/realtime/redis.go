package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Config contains Redis publisher configuration.
type Config struct {
	Addr           string
	Password       string
	DB             int
	PublishTimeout time.Duration
	// PublishRate bounds publishes per second across all channels;
	// zero disables limiting.
	PublishRate  float64
	PublishBurst int
}

// RedisPublisher publishes events over Redis pub/sub. Subscriber-facing
// delivery (websocket bridges, SSE gateways) subscribes to the same
// channels and is outside this service.
type RedisPublisher struct {
	client  *redis.Client
	timeout time.Duration
	limiter *rate.Limiter
}

// envelope is the wire format carried on the channel.
type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// NewRedisPublisher connects to Redis and returns a publisher.
func NewRedisPublisher(cfg Config) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Warn("unable to reach redis", "addr", cfg.Addr, "error", err)
	} else {
		slog.Info("connected to redis", "addr", cfg.Addr)
	}

	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.PublishRate > 0 {
		burst := cfg.PublishBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.PublishRate), burst)
	}

	return &RedisPublisher{
		client:  client,
		timeout: timeout,
		limiter: limiter,
	}
}

// Publish sends a single event to the channel. One attempt, bounded by the
// configured timeout; retry and backoff are the caller's or the broker's
// concern.
func (p *RedisPublisher) Publish(ctx context.Context, channel, event string, payload interface{}) error {
	body, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			recordPublish("rate_limited")
			return fmt.Errorf("publish rate limit: %w", err)
		}
	}

	if err := p.client.Publish(ctx, channel, body).Err(); err != nil {
		recordPublish("error")
		return fmt.Errorf("publish to %s: %w", channel, err)
	}

	recordPublish("ok")
	recordPublishDuration(time.Since(start))
	return nil
}

// Ping verifies broker connectivity.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
