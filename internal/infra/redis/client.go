package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ehevelone/vitalink-app/internal/infra/config"
)

const (
	dialTimeout    = 5 * time.Second
	opTimeout      = 3 * time.Second
	poolWait       = 4 * time.Second
	idleConnExpiry = 5 * time.Minute
)

// Client wraps the go-redis client with startup verification and lifecycle
// hooks. Redis only backs the sliding-window rate limit counters; losing it
// degrades brute-force protection but never blocks logins.
type Client struct {
	client *redis.Client
	logger *zap.Logger
	cfg    config.RedisSettings
}

// NewClient dials Redis and confirms connectivity with a bounded ping.
func NewClient(cfg config.RedisSettings, logger *zap.Logger) (*Client, error) {
	opts := &redis.Options{
		Addr:            fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        10,
		MinIdleConns:    2,
		MaxRetries:      3,
		DialTimeout:     dialTimeout,
		ReadTimeout:     opTimeout,
		WriteTimeout:    opTimeout,
		PoolTimeout:     poolWait,
		ConnMaxIdleTime: idleConnExpiry,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("redis connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Int("db", cfg.DB),
		zap.Bool("tls_enabled", cfg.TLSEnabled),
	)
	return &Client{client: client, logger: logger, cfg: cfg}, nil
}

// Client exposes the underlying go-redis client for repository wiring.
func (c *Client) Client() *redis.Client {
	return c.client
}

// HealthCheck pings Redis, feeding the readiness endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close shuts down the connection pool.
func (c *Client) Close() error {
	c.logger.Info("closing redis connection")
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}

// Stats reports connection pool counters for monitoring.
func (c *Client) Stats() *redis.PoolStats {
	return c.client.PoolStats()
}
