// Package refresh renews the access token. Concurrent callers share one
// network call, recent refreshes are not repeated and the number of calls
// per window is bounded.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kochabx/authsession/core/rate"
	"github.com/kochabx/authsession/errors"
	"github.com/kochabx/authsession/events"
	"github.com/kochabx/authsession/log"
	"github.com/kochabx/authsession/metrics"
	"github.com/kochabx/authsession/session"
)

// Refresher exchanges a refresh token for an access token. It returns an
// error matching errors.ErrRefreshRejected when the refresh token is dead.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// Coordinator owns the refresh state machine for one session store.
type Coordinator struct {
	mu    sync.Mutex
	state state

	store     *session.Store
	api       Refresher
	limiter   rate.Limiter
	policy    Policy
	clock     clockwork.Clock
	logger    *log.Logger
	publisher events.Publisher
	metrics   *metrics.Metrics
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithPolicy(p Policy) Option {
	return func(c *Coordinator) {
		c.policy = p
	}
}

// WithLimiter replaces the in-process attempt budget, e.g. with a redis
// limiter shared by several processes.
func WithLimiter(l rate.Limiter) Option {
	return func(c *Coordinator) {
		c.limiter = l
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(c *Coordinator) {
		c.publisher = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// New creates a Coordinator using the store's clock.
func New(store *session.Store, api Refresher, opts ...Option) *Coordinator {
	c := &Coordinator{
		state:     idle{},
		store:     store,
		api:       api,
		policy:    DefaultPolicy(),
		clock:     store.Clock(),
		logger:    log.G(),
		publisher: events.Noop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = rate.NewWindow(c.policy.MaxAttempts, c.policy.AttemptWindow)
	}
	return c
}

// State reports the current state. An expired cooldown reads as idle.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch st := c.state.(type) {
	case cooldown:
		if c.clock.Now().Before(st.until) {
			return State{Kind: StateCooldown, Until: st.until}
		}
		return State{Kind: StateIdle}
	default:
		return State{Kind: st.kind()}
	}
}

// ShouldRefresh reports whether the access token is close enough to expiry
// to renew it ahead of time. Without both tokens or a known expiry it is
// false.
func (c *Coordinator) ShouldRefresh() bool {
	snap := c.store.Snapshot()
	if snap.RefreshToken == "" || snap.AccessToken == "" {
		return false
	}
	remaining, ok := snap.Remaining(c.clock.Now())
	if !ok {
		return false
	}
	return remaining < c.policy.ProactiveThreshold
}

// Token returns the access token, renewing it first when ShouldRefresh.
func (c *Coordinator) Token(ctx context.Context) (string, error) {
	if !c.ShouldRefresh() {
		return c.store.Snapshot().AccessToken, nil
	}
	res, err := c.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return res.Token, nil
}

// Refresh renews the access token now. Callers arriving while a refresh is
// in flight wait for the same result. ctx only bounds the wait; the network
// call runs with its own timeout so an impatient caller cannot fail it for
// the others.
func (c *Coordinator) Refresh(ctx context.Context) (Result, error) {
	c.mu.Lock()
	now := c.clock.Now()

	switch st := c.state.(type) {
	case refreshing:
		c.mu.Unlock()
		return c.wait(ctx, st.call)
	case cooldown:
		if now.Before(st.until) {
			c.mu.Unlock()
			c.metrics.Refresh(OutcomeCooldown.String())
			return Result{Token: c.store.Snapshot().AccessToken, Outcome: OutcomeCooldown}, nil
		}
		c.state = idle{}
	}

	snap := c.store.Snapshot()
	if snap.RefreshToken == "" {
		c.mu.Unlock()
		c.metrics.Refresh("no_refresh_token")
		return Result{}, errors.ErrNoRefreshToken
	}
	if c.throttled(snap, now) {
		c.mu.Unlock()
		c.metrics.Refresh(OutcomeThrottled.String())
		return Result{Token: snap.AccessToken, Outcome: OutcomeThrottled}, nil
	}

	cl := &call{done: make(chan struct{})}
	c.state = refreshing{call: cl}
	c.mu.Unlock()

	go c.run(context.WithoutCancel(ctx), cl, snap)
	return c.wait(ctx, cl)
}

func (c *Coordinator) throttled(snap session.Session, now time.Time) bool {
	if snap.LastRefresh.IsZero() || !snap.HasToken() {
		return false
	}
	if now.Sub(snap.LastRefresh) >= c.policy.MinInterval {
		return false
	}
	remaining, ok := snap.Remaining(now)
	return ok && remaining >= c.policy.MinRemaining
}

func (c *Coordinator) wait(ctx context.Context, cl *call) (Result, error) {
	select {
	case <-cl.done:
		return cl.res, cl.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// run performs the attempt. The deferred block is the only place that
// leaves the refreshing state, and it runs even if the attempt panics.
func (c *Coordinator) run(ctx context.Context, cl *call, snap session.Session) {
	var next state = idle{}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("token refresh panicked")
			cl.res = Result{}
			cl.err = errors.ErrRefreshUnavailable.WithCause(fmt.Errorf("panic: %v", r))
		}
		c.mu.Lock()
		if st, ok := c.state.(refreshing); ok && st.call == cl {
			c.state = next
		}
		c.mu.Unlock()
		close(cl.done)
	}()

	ctx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	allowed, retryAt, err := c.limiter.Allow(ctx, c.clock.Now())
	if err != nil {
		// an unreachable shared budget must not lock the user out
		c.logger.Warn().Err(err).Msg("refresh budget unavailable, allowing attempt")
		allowed = true
	}
	if !allowed {
		next = cooldown{until: retryAt}
		cl.res = Result{Token: snap.AccessToken, Outcome: OutcomeCooldown}
		c.metrics.Refresh(OutcomeCooldown.String())
		c.logger.Warn().Time("until", retryAt).Msg("refresh budget exhausted")
		c.publisher.Publish(ctx, events.New(events.TypeCooldown, snap.Username, ""))
		return
	}

	start := time.Now()
	token, err := c.api.Refresh(ctx, snap.RefreshToken)
	c.metrics.RefreshDuration(time.Since(start))

	switch {
	case err == nil:
		if _, ok := c.store.Refreshed(ctx, snap.RefreshToken, token); !ok {
			c.discard(cl, snap)
			return
		}
		if err := c.limiter.Reset(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("reset refresh budget")
		}
		cl.res = Result{Token: token, Outcome: OutcomeRefreshed}
		c.metrics.Refresh(OutcomeRefreshed.String())
		c.logger.Debug().Str("username", snap.Username).Msg("access token refreshed")
		c.publisher.Publish(ctx, events.New(events.TypeRefreshed, snap.Username, ""))

	case errors.Is(err, errors.ErrRefreshRejected):
		cl.err = err
		c.metrics.Refresh("rejected")
		c.logger.Warn().Err(err).Str("username", snap.Username).Msg("refresh token rejected")
		if c.store.ForceLogoutIf(ctx, snap.RefreshToken, session.ReasonRefreshRejected) {
			c.metrics.ForcedLogout(session.ReasonRefreshRejected)
		}

	default:
		if _, ok := c.store.MarkRefreshAttempt(ctx, snap.RefreshToken); !ok {
			c.discard(cl, snap)
			return
		}
		cl.res = Result{Token: snap.AccessToken, Outcome: OutcomeFallback}
		c.metrics.Refresh(OutcomeFallback.String())
		c.logger.Warn().Err(err).Msg("token refresh failed, keeping previous token")
		c.publisher.Publish(ctx, events.New(events.TypeRefreshFailed, snap.Username, err.Error()))
	}
}

// discard ends an attempt whose session was logged out or replaced while
// the call was in flight. Its outcome belongs to nobody.
func (c *Coordinator) discard(cl *call, snap session.Session) {
	cl.err = errors.ErrSessionExpired
	c.metrics.Refresh("discarded")
	c.logger.Info().Str("username", snap.Username).Msg("session changed during refresh, result discarded")
}
