package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/souqline/souqline-backend/pkg/config"
	"github.com/souqline/souqline-backend/pkg/logger"
)

const keyNamespace = "sq"

// Client wraps the redis connection helpers needed by the platform.
type Client struct {
	raw *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// New builds a redis client from configuration.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	raw := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	client := &Client{raw: raw}
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "redis connection established")
	}
	return client, nil
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.raw.Ping(ctx).Err()
}

// Close releases pooled connections.
func (c *Client) Close() error {
	return c.raw.Close()
}

// Publish sends a payload to a namespaced channel.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.raw.Publish(ctx, ChannelKey(channel), payload).Err()
}

// Subscribe opens a subscription on a namespaced channel.
func (c *Client) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	namespaced := make([]string, len(channels))
	for i, channel := range channels {
		namespaced[i] = ChannelKey(channel)
	}
	return c.raw.Subscribe(ctx, namespaced...)
}

// ChannelKey builds the fully qualified pub/sub channel name.
func ChannelKey(channel string) string {
	return fmt.Sprintf("%s:events:%s", keyNamespace, channel)
}
