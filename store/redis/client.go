package redis

import (
	"context"
	"errors"
	"runtime"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/kochabx/authsession/log"
)

var (
	// ErrNil is returned for a missing key.
	ErrNil = redis.Nil

	ErrInvalidConfig  = errors.New("redis: invalid configuration")
	ErrEmptyAddrs     = errors.New("redis: addrs cannot be empty")
	ErrInvalidTimeout = errors.New("redis: invalid timeout value")
)

// Client backs the redis session storage and the shared refresh limiter.
type Client struct {
	client redis.UniversalClient
	config *Config
	logger *log.Logger
}

// New connects and pings once.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.G()
	}

	c := &Client{
		config: cfg,
		logger: o.logger,
		client: redis.NewUniversalClient(universalOptions(cfg)),
	}

	if err := c.setupHooks(o); err != nil {
		_ = c.client.Close()
		return nil, err
	}
	if err := c.Ping(ctx); err != nil {
		_ = c.client.Close()
		return nil, err
	}

	c.logger.Debug().Str("mode", cfg.Mode()).Strs("addrs", cfg.Addrs).Msg("redis client created")
	return c, nil
}

// NewFromUniversal wraps an existing go-redis client.
func NewFromUniversal(client redis.UniversalClient) *Client {
	return &Client{client: client, config: &Config{}, logger: log.G()}
}

func universalOptions(cfg *Config) *redis.UniversalOptions {
	poolSize := cfg.PoolSize
	if poolSize == 0 {
		poolSize = 10 * runtime.GOMAXPROCS(0)
	}
	return &redis.UniversalOptions{
		Addrs:           cfg.Addrs,
		MasterName:      cfg.MasterName,
		Username:        cfg.Username,
		Password:        cfg.Password,
		DB:              cfg.DB,
		Protocol:        cfg.Protocol,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		PoolSize:        poolSize,
		MinIdleConns:    cfg.MinIdleConns,
		ConnMaxIdleTime: cfg.MaxIdleTime,
		PoolTimeout:     cfg.PoolTimeout,
		MaxRetries:      cfg.MaxRetries,
	}
}

func (c *Client) setupHooks(o *options) error {
	for _, hook := range o.hooks {
		c.client.AddHook(hook)
	}
	if o.tracing {
		if err := redisotel.InstrumentTracing(c.client, o.tracingOpts...); err != nil {
			return err
		}
	}
	if o.metrics {
		if err := redisotel.InstrumentMetrics(c.client, o.metricsOpts...); err != nil {
			return err
		}
	}
	if o.debug {
		c.client.AddHook(NewDebugHook(c.logger, o.slowThreshold))
	}
	return nil
}

func (c *Client) UniversalClient() redis.UniversalClient {
	return c.client
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Client) Close() error {
	err := c.client.Close()
	c.logger.Debug().Msg("redis client closed")
	return err
}
