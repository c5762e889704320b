package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/fhayvy/CodeEntry/pkg/retry"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = 2 * time.Second

// Config describes the connection used for idempotency records
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Retry governs the PING issued before NewClient returns
	Retry *retry.Policy

	// Instrument adds otel tracing and pool metrics to every command
	Instrument bool
}

func (c *Config) options() *redis.Options {
	opts := &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return opts
}

// Client is a connected go-redis client
type Client struct {
	rdb  *redis.Client
	addr string
}

// NewClient dials Redis and returns once it answers PING, retrying per
// cfg.Retry
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	opts := cfg.options()
	rdb := redis.NewClient(opts)

	if cfg.Instrument {
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("instrument redis tracing: %w", err)
		}
		if err := redisotel.InstrumentMetrics(rdb); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("instrument redis metrics: %w", err)
		}
	}

	c := &Client{rdb: rdb, addr: opts.Addr}
	if err := retry.Do(ctx, cfg.Retry, c.Ping, nil); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis at %s: %w", opts.Addr, err)
	}
	return c, nil
}

// Raw exposes the go-redis client for command-level callers
func (c *Client) Raw() *redis.Client {
	return c.rdb
}

// Addr is the address the client dialed
func (c *Client) Addr() string {
	return c.addr
}

// Ping fails unless the server answers PONG within pingTimeout
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	reply, err := c.rdb.Ping(ctx).Result()
	if err != nil {
		return err
	}
	if reply != "PONG" {
		return fmt.Errorf("unexpected PING reply %q", reply)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
