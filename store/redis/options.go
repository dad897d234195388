package redis

import (
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/kochabx/authsession/log"
)

type Option func(*options)

type options struct {
	hooks         []redis.Hook
	metrics       bool
	tracing       bool
	debug         bool
	tracingOpts   []redisotel.TracingOption
	metricsOpts   []redisotel.MetricsOption
	logger        *log.Logger
	slowThreshold time.Duration
}

func WithHooks(hooks ...redis.Hook) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hooks...)
	}
}

// WithMetrics enables OpenTelemetry metrics.
func WithMetrics(opts ...redisotel.MetricsOption) Option {
	return func(o *options) {
		o.metrics = true
		o.metricsOpts = opts
	}
}

// WithTracing enables OpenTelemetry tracing.
func WithTracing(opts ...redisotel.TracingOption) Option {
	return func(o *options) {
		o.tracing = true
		o.tracingOpts = opts
	}
}

// WithDebug logs command latency and flags commands slower than slow.
func WithDebug(slowThreshold time.Duration) Option {
	return func(o *options) {
		o.debug = true
		o.slowThreshold = slowThreshold
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
