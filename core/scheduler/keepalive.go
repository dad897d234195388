// Package scheduler runs periodic session work: the keep-alive check that
// renews the access token before it expires, and the retry delays used by
// long-lived connections.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kochabx/authsession/log"
)

// TokenSource returns a usable access token, renewing it when due.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// KeepaliveConfig controls the periodic check.
type KeepaliveConfig struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled" default:"true"`
	Schedule string        `json:"schedule" mapstructure:"schedule" default:"@every 1m"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout" default:"20s" validate:"gt=0"`
}

// Keepalive asks a TokenSource for a token on a cron schedule so the token
// is renewed while the process is idle. It satisfies transport.Server.
type Keepalive struct {
	cfg    KeepaliveConfig
	tokens TokenSource
	logger *log.Logger
	cron   *cron.Cron

	mu      sync.Mutex
	stopped chan struct{}
	ticks   int
}

// NewKeepalive validates the schedule and registers the check.
func NewKeepalive(cfg KeepaliveConfig, tokens TokenSource, logger *log.Logger) (*Keepalive, error) {
	if logger == nil {
		logger = log.G()
	}
	k := &Keepalive{
		cfg:     cfg,
		tokens:  tokens,
		logger:  logger,
		stopped: make(chan struct{}),
	}
	parser := NewCronParser()
	if err := parser.Validate(cfg.Schedule); err != nil {
		return nil, err
	}
	cl := cronLogger{logger}
	k.cron = cron.New(
		cron.WithParser(parser.parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := k.cron.AddFunc(cfg.Schedule, func() {
		_ = k.Tick(context.Background())
	}); err != nil {
		return nil, err
	}
	return k, nil
}

// Tick runs one check.
func (k *Keepalive) Tick(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, k.cfg.Timeout)
	defer cancel()

	k.mu.Lock()
	k.ticks++
	k.mu.Unlock()

	token, err := k.tokens.Token(ctx)
	if err != nil {
		k.logger.Warn().Err(err).Msg("keepalive token check failed")
		return err
	}
	if token == "" {
		k.logger.Debug().Msg("keepalive: no active session")
	}
	return nil
}

// Ticks returns how many checks ran.
func (k *Keepalive) Ticks() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.ticks
}

// Run starts the schedule and blocks until Shutdown.
func (k *Keepalive) Run() error {
	k.logger.Info().Str("schedule", k.cfg.Schedule).Msg("keepalive started")
	k.cron.Start()
	<-k.stopped
	return nil
}

// Shutdown stops scheduling and waits for a running check.
func (k *Keepalive) Shutdown(ctx context.Context) error {
	k.mu.Lock()
	select {
	case <-k.stopped:
	default:
		close(k.stopped)
	}
	k.mu.Unlock()

	select {
	case <-k.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's own messages to the session logger.
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
