package events

import (
	"context"

	"github.com/panjf2000/ants/v2"

	"github.com/kochabx/authsession/log"
)

// Async hands events to a goroutine pool so slow sinks never delay a
// request. Events are dropped when the pool is saturated.
type Async struct {
	next   Publisher
	pool   *ants.Pool
	logger *log.Logger
}

// NewAsync wraps next with a pool of size workers.
func NewAsync(next Publisher, size int, logger *log.Logger) (*Async, error) {
	if logger == nil {
		logger = log.G()
	}
	pool, err := ants.NewPool(size, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &Async{next: next, pool: pool, logger: logger}, nil
}

func (a *Async) Publish(ctx context.Context, e Event) {
	ctx = context.WithoutCancel(ctx)
	if err := a.pool.Submit(func() { a.next.Publish(ctx, e) }); err != nil {
		a.logger.Warn().Err(err).Str("event", string(e.Type)).Msg("session event dropped")
	}
}

// Running returns the number of busy workers.
func (a *Async) Running() int {
	return a.pool.Running()
}

// Close waits for queued events and releases the pool.
func (a *Async) Close() error {
	return a.pool.ReleaseTimeout(defaultReleaseTimeout)
}
