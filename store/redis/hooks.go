package redis

import (
	"context"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kochabx/authsession/log"
)

// DebugHook logs command latency. Arguments may hold tokens, so only the
// command name is logged.
type DebugHook struct {
	logger        *log.Logger
	slowThreshold time.Duration
}

// NewDebugHook never reports slow commands when slowThreshold is 0.
func NewDebugHook(logger *log.Logger, slowThreshold time.Duration) *DebugHook {
	return &DebugHook{logger: logger, slowThreshold: slowThreshold}
}

func (h *DebugHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		start := time.Now()
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.logger.Error().Str("addr", addr).Dur("duration", time.Since(start)).Err(err).Msg("redis dial failed")
		}
		return conn, err
	}
}

func (h *DebugHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.record(cmd.FullName(), time.Since(start), err)
		return err
	}
}

func (h *DebugHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.record("pipeline", time.Since(start), err)
		return err
	}
}

func (h *DebugHook) record(name string, d time.Duration, err error) {
	switch {
	case err != nil && err != redis.Nil:
		h.logger.Warn().Str("cmd", name).Dur("duration", d).Err(err).Msg("redis command failed")
	case h.slowThreshold > 0 && d > h.slowThreshold:
		h.logger.Warn().Str("cmd", name).Dur("duration", d).Dur("threshold", h.slowThreshold).Msg("slow redis command")
	default:
		h.logger.Debug().Str("cmd", name).Dur("duration", d).Msg("redis command")
	}
}
