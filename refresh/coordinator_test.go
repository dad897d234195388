package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	kerrors "github.com/kochabx/authsession/errors"
	"github.com/kochabx/authsession/events"
	"github.com/kochabx/authsession/log"
	"github.com/kochabx/authsession/session"
	"github.com/kochabx/authsession/storage"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeAPI struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	fn      func(n int32) (string, error)
}

func (f *fakeAPI) Refresh(ctx context.Context, _ string) (string, error) {
	n := f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.fn(n)
}

type fixture struct {
	store    *session.Store
	clock    *clockwork.FakeClock
	rec      *events.Recorder
	redirect chan string
	c        *Coordinator
}

func newFixture(t *testing.T, api Refresher, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		clock:    clockwork.NewFakeClockAt(epoch),
		rec:      &events.Recorder{},
		redirect: make(chan string, 4),
	}
	f.store = session.New(
		session.WithClock(f.clock),
		session.WithStorage(storage.NewMemory()),
		session.WithLogger(log.Nop()),
		session.WithPublisher(f.rec),
		session.WithNavigator(session.NavigatorFunc(func(_ context.Context, reason string) {
			f.redirect <- reason
		})),
	)
	f.store.Set(context.Background(), session.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Identity:     session.Identity{Username: "alice"},
	})
	base := []Option{WithLogger(log.Nop()), WithPublisher(f.rec)}
	f.c = New(f.store, api, append(base, opts...)...)
	return f
}

func TestShouldRefresh(t *testing.T) {
	f := newFixture(t, &fakeAPI{})
	assert.False(t, f.c.ShouldRefresh())

	f.clock.Advance(53*time.Minute + time.Second)
	assert.True(t, f.c.ShouldRefresh())

	f.store.Update(context.Background(), func(s *session.Session) { s.RefreshToken = "" })
	assert.False(t, f.c.ShouldRefresh())
}

func TestShouldRefreshUnknownExpiry(t *testing.T) {
	f := newFixture(t, &fakeAPI{})
	f.store.Clear(context.Background())
	assert.False(t, f.c.ShouldRefresh())
}

func TestRefreshSuccess(t *testing.T) {
	api := &fakeAPI{fn: func(int32) (string, error) { return "access-2", nil }}
	f := newFixture(t, api)
	f.clock.Advance(10 * time.Minute)

	res, err := f.c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Token: "access-2", Outcome: OutcomeRefreshed}, res)

	snap := f.store.Snapshot()
	assert.Equal(t, "access-2", snap.AccessToken)
	assert.Equal(t, "refresh-1", snap.RefreshToken)
	assert.Equal(t, f.clock.Now(), snap.LastRefresh)
	assert.Equal(t, f.clock.Now().Add(55*time.Minute), snap.AccessTokenExpiry)
	assert.Equal(t, StateIdle, f.c.State().Kind)
	assert.Contains(t, f.rec.Types(), events.TypeRefreshed)
}

func TestRefreshSingleFlight(t *testing.T) {
	api := &fakeAPI{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		fn:      func(int32) (string, error) { return "access-2", nil },
	}
	f := newFixture(t, api)

	first := make(chan Result, 1)
	go func() {
		res, _ := f.c.Refresh(context.Background())
		first <- res
	}()
	<-api.started
	assert.Equal(t, StateRefreshing, f.c.State().Kind)

	var eg errgroup.Group
	results := make([]Result, 10)
	for i := range results {
		eg.Go(func() error {
			res, err := f.c.Refresh(context.Background())
			results[i] = res
			return err
		})
	}
	close(api.release)
	require.NoError(t, eg.Wait())

	assert.Equal(t, "access-2", (<-first).Token)
	for _, res := range results {
		assert.Equal(t, "access-2", res.Token)
	}
	assert.Equal(t, int32(1), api.calls.Load())
}

func TestRefreshWaiterCancelDoesNotFailOthers(t *testing.T) {
	api := &fakeAPI{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		fn:      func(int32) (string, error) { return "access-2", nil },
	}
	f := newFixture(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := f.c.Refresh(ctx)
		errc <- err
	}()
	<-api.started
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	done := make(chan Result, 1)
	go func() {
		res, _ := f.c.Refresh(context.Background())
		done <- res
	}()
	close(api.release)
	assert.Equal(t, "access-2", (<-done).Token)
	assert.Equal(t, int32(1), api.calls.Load())
}

func TestRefreshThrottled(t *testing.T) {
	api := &fakeAPI{fn: func(n int32) (string, error) { return "access-2", nil }}
	f := newFixture(t, api)

	_, err := f.c.Refresh(context.Background())
	require.NoError(t, err)

	f.clock.Advance(10 * time.Second)
	res, err := f.c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Token: "access-2", Outcome: OutcomeThrottled}, res)
	assert.Equal(t, int32(1), api.calls.Load())

	f.clock.Advance(30 * time.Second)
	res, err = f.c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefreshed, res.Outcome)
	assert.Equal(t, int32(2), api.calls.Load())
}

func TestRefreshFallbackKeepsToken(t *testing.T) {
	api := &fakeAPI{fn: func(int32) (string, error) {
		return "", kerrors.ErrRefreshUnavailable.WithCause(errors.New("dial tcp: connection refused"))
	}}
	f := newFixture(t, api)

	res, err := f.c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Token: "access-1", Outcome: OutcomeFallback}, res)

	snap := f.store.Snapshot()
	assert.Equal(t, "access-1", snap.AccessToken)
	assert.Equal(t, f.clock.Now(), snap.LastRefresh)
	assert.Contains(t, f.rec.Types(), events.TypeRefreshFailed)
}

func TestRefreshBudget(t *testing.T) {
	api := &fakeAPI{fn: func(int32) (string, error) {
		return "", kerrors.ErrRefreshUnavailable
	}}
	f := newFixture(t, api)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := f.c.Refresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, OutcomeFallback, res.Outcome)
		f.clock.Advance(31 * time.Second)
	}

	res, err := f.c.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Token: "access-1", Outcome: OutcomeCooldown}, res)
	assert.Equal(t, int32(3), api.calls.Load())

	st := f.c.State()
	assert.Equal(t, StateCooldown, st.Kind)
	assert.Equal(t, epoch.Add(5*time.Minute), st.Until)

	res, err = f.c.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCooldown, res.Outcome)
	assert.Equal(t, int32(3), api.calls.Load())

	f.clock.Advance(5 * time.Minute)
	assert.Equal(t, StateIdle, f.c.State().Kind)
	res, err = f.c.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFallback, res.Outcome)
	assert.Equal(t, int32(4), api.calls.Load())
}

func TestRefreshSuccessResetsBudget(t *testing.T) {
	api := &fakeAPI{fn: func(n int32) (string, error) {
		if n == 3 {
			return "access-2", nil
		}
		return "", kerrors.ErrRefreshUnavailable
	}}
	f := newFixture(t, api)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.c.Refresh(ctx)
		require.NoError(t, err)
		f.clock.Advance(31 * time.Second)
	}
	res, err := f.c.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFallback, res.Outcome)
	assert.Equal(t, int32(4), api.calls.Load())
}

func TestRefreshRejected(t *testing.T) {
	api := &fakeAPI{fn: func(int32) (string, error) { return "", kerrors.ErrRefreshRejected }}
	f := newFixture(t, api)

	_, err := f.c.Refresh(context.Background())
	assert.ErrorIs(t, err, kerrors.ErrRefreshRejected)
	assert.True(t, kerrors.IsTerminal(err))

	assert.False(t, f.store.Snapshot().HasToken())
	assert.Equal(t, session.ReasonRefreshRejected, <-f.redirect)
	assert.Contains(t, f.rec.Types(), events.TypeForcedLogout)
}

func TestLogoutDuringRefreshStaysLoggedOut(t *testing.T) {
	for name, fn := range map[string]func(int32) (string, error){
		"success": func(int32) (string, error) { return "access-2", nil },
		"failure": func(int32) (string, error) { return "", kerrors.ErrRefreshUnavailable },
	} {
		t.Run(name, func(t *testing.T) {
			api := &fakeAPI{
				started: make(chan struct{}, 1),
				release: make(chan struct{}),
				fn:      fn,
			}
			f := newFixture(t, api)

			errc := make(chan error, 1)
			go func() {
				_, err := f.c.Refresh(context.Background())
				errc <- err
			}()
			<-api.started
			f.store.Logout(context.Background(), false)
			close(api.release)

			assert.ErrorIs(t, <-errc, kerrors.ErrSessionExpired)
			assert.Equal(t, session.Session{}, f.store.Snapshot())
			assert.False(t, f.store.Valid())
			assert.Equal(t, StateIdle, f.c.State().Kind)
			assert.NotContains(t, f.rec.Types(), events.TypeRefreshed)
		})
	}
}

func TestRejectedRefreshSparesNewLogin(t *testing.T) {
	api := &fakeAPI{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		fn:      func(int32) (string, error) { return "", kerrors.ErrRefreshRejected },
	}
	f := newFixture(t, api)

	errc := make(chan error, 1)
	go func() {
		_, err := f.c.Refresh(context.Background())
		errc <- err
	}()
	<-api.started
	f.store.Set(context.Background(), session.Session{
		AccessToken:  "access-b",
		RefreshToken: "refresh-b",
		Identity:     session.Identity{Username: "bob"},
	})
	close(api.release)

	assert.ErrorIs(t, <-errc, kerrors.ErrRefreshRejected)
	assert.Equal(t, "access-b", f.store.Snapshot().AccessToken)
	assert.NotContains(t, f.rec.Types(), events.TypeForcedLogout)
	assert.Empty(t, f.redirect)
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	api := &fakeAPI{}
	f := newFixture(t, api)
	f.store.Clear(context.Background())

	_, err := f.c.Refresh(context.Background())
	assert.ErrorIs(t, err, kerrors.ErrNoRefreshToken)
	assert.Equal(t, int32(0), api.calls.Load())
}

func TestRefreshPanicReleasesState(t *testing.T) {
	api := &fakeAPI{fn: func(n int32) (string, error) {
		if n == 1 {
			panic("boom")
		}
		return "access-2", nil
	}}
	f := newFixture(t, api)

	_, err := f.c.Refresh(context.Background())
	assert.ErrorIs(t, err, kerrors.ErrRefreshUnavailable)
	assert.Equal(t, StateIdle, f.c.State().Kind)

	res, err := f.c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", res.Token)
}

func TestTokenProactive(t *testing.T) {
	api := &fakeAPI{fn: func(int32) (string, error) { return "access-2", nil }}
	f := newFixture(t, api)
	ctx := context.Background()

	tok, err := f.c.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok)
	assert.Equal(t, int32(0), api.calls.Load())

	f.clock.Advance(54 * time.Minute)
	tok, err = f.c.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok)
	assert.Equal(t, int32(1), api.calls.Load())
}

type deniedLimiter struct {
	mu    sync.Mutex
	until time.Time
}

func (l *deniedLimiter) Allow(context.Context, time.Time) (bool, time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return false, l.until, nil
}

func (l *deniedLimiter) Reset(context.Context) error { return nil }

func TestRefreshCustomLimiter(t *testing.T) {
	api := &fakeAPI{}
	f := newFixture(t, api, WithLimiter(&deniedLimiter{until: epoch.Add(time.Minute)}))

	res, err := f.c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCooldown, res.Outcome)
	assert.Equal(t, int32(0), api.calls.Load())
	assert.Contains(t, f.rec.Types(), events.TypeCooldown)
}
