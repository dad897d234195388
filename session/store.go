// Package session holds the authentication state of the current user and
// persists it to a storage backend.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kochabx/authsession/errors"
	"github.com/kochabx/authsession/events"
	"github.com/kochabx/authsession/log"
	"github.com/kochabx/authsession/storage"
)

// Store is the single source of truth for the session. Readers always see
// a complete Session; every mutation is one swap of the in-memory value.
type Store struct {
	mu  sync.RWMutex
	cur Session

	// writeMu orders mutations so storage receives them in the same order
	// as memory.
	writeMu sync.Mutex

	storage   storage.Storage
	clock     clockwork.Clock
	logger    *log.Logger
	policy    Policy
	revoker   Revoker
	navigator Navigator
	publisher events.Publisher
}

// New creates an empty Store. Call Hydrate to load a persisted session.
func New(opts ...Option) *Store {
	s := &Store{
		storage:   storage.NewMemory(),
		clock:     clockwork.NewRealClock(),
		logger:    log.G(),
		policy:    DefaultPolicy(),
		navigator: nopNavigator{},
		publisher: events.Noop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the configured policy.
func (s *Store) Policy() Policy {
	return s.policy
}

// Clock returns the store clock.
func (s *Store) Clock() clockwork.Clock {
	return s.clock
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.clone()
}

// Set replaces the whole session. A non-empty access token gets a fresh
// expiry of now + TokenTTL; an empty one clears the expiry.
func (s *Store) Set(ctx context.Context, next Session) Session {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.commit(ctx, s.stamp(next.clone()))
}

// Update applies fn to a copy of the session and commits it. The expiry is
// recomputed only if fn assigned a different access token.
func (s *Store) Update(ctx context.Context, fn func(*Session)) Session {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.apply(ctx, s.Snapshot(), fn)
}

// Refreshed stores an access token obtained with refreshToken and records
// the refresh time. Every other field is preserved. Nothing is written and
// ok is false when the session no longer holds refreshToken, i.e. it was
// cleared or replaced while the refresh was in flight.
func (s *Store) Refreshed(ctx context.Context, refreshToken, accessToken string) (Session, bool) {
	now := s.clock.Now()
	return s.updateIf(ctx, refreshToken, func(cur *Session) {
		cur.AccessToken = accessToken
		cur.LastRefresh = now
		cur.AccessTokenExpiry = now.Add(s.policy.TokenTTL)
	})
}

// MarkRefreshAttempt records a refresh attempt with refreshToken that kept
// the old token. Like Refreshed it only writes to the same session.
func (s *Store) MarkRefreshAttempt(ctx context.Context, refreshToken string) (Session, bool) {
	now := s.clock.Now()
	return s.updateIf(ctx, refreshToken, func(cur *Session) {
		cur.LastRefresh = now
	})
}

func (s *Store) updateIf(ctx context.Context, refreshToken string, fn func(*Session)) (Session, bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.Snapshot()
	if refreshToken == "" || cur.RefreshToken != refreshToken {
		return cur, false
	}
	return s.apply(ctx, cur, fn), true
}

// apply runs fn on next and commits it. Caller holds writeMu.
func (s *Store) apply(ctx context.Context, next Session, fn func(*Session)) Session {
	prev := next.AccessToken
	fn(&next)
	switch {
	case !next.HasToken():
		next.AccessTokenExpiry = time.Time{}
	case next.AccessToken != prev:
		next.AccessTokenExpiry = s.clock.Now().Add(s.policy.TokenTTL)
	}
	return s.commit(ctx, next)
}

// Clear removes every persisted key and resets the session. It is safe to
// call any number of times.
func (s *Store) Clear(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.commit(ctx, Session{})
}

// Valid reports whether a token exists and, when the expiry is known, is
// not within ValidityBuffer of expiring.
func (s *Store) Valid() bool {
	snap := s.Snapshot()
	if !snap.HasToken() {
		return false
	}
	if snap.AccessTokenExpiry.IsZero() {
		return true
	}
	return snap.AccessTokenExpiry.After(s.clock.Now().Add(s.policy.ValidityBuffer))
}

// Hydrate loads the persisted session. Keys that cannot be read are treated
// as absent and the error is returned after the load completes.
func (s *Store) Hydrate(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	values := make(map[string]string, len(Keys))
	var errs []error
	for _, key := range Keys {
		v, ok, err := s.storage.Get(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			values[key] = v
		}
	}

	// a token persisted without expiry keeps an unknown lifetime
	next := decode(values)
	s.mu.Lock()
	s.cur = next
	s.mu.Unlock()

	if len(errs) > 0 {
		return errors.ErrStorageUnavailable.WithCause(errors.Join(errs...))
	}
	return nil
}

// ForceLogout clears the session without contacting the server and sends
// the user to the login page.
func (s *Store) ForceLogout(ctx context.Context, reason string) {
	username := s.Snapshot().Username
	s.Clear(ctx)
	s.loggedOut(ctx, username, reason)
}

// ForceLogoutIf is ForceLogout for the session holding refreshToken. It
// reports false and leaves a cleared or newer session alone.
func (s *Store) ForceLogoutIf(ctx context.Context, refreshToken, reason string) bool {
	s.writeMu.Lock()
	cur := s.Snapshot()
	if refreshToken == "" || cur.RefreshToken != refreshToken {
		s.writeMu.Unlock()
		return false
	}
	s.commit(ctx, Session{})
	s.writeMu.Unlock()

	s.loggedOut(ctx, cur.Username, reason)
	return true
}

func (s *Store) loggedOut(ctx context.Context, username, reason string) {
	s.logger.Warn().Str("username", username).Str("reason", reason).Msg("session force-cleared")
	s.publisher.Publish(ctx, events.New(events.TypeForcedLogout, username, reason))
	s.navigator.RedirectToLogin(ctx, reason)
}

// Logout revokes the refresh token on the server when one exists and then
// clears the session. The local clear always happens and the result always
// reports success, whatever the server did.
func (s *Store) Logout(ctx context.Context, announce bool) (res LogoutResult) {
	snap := s.Snapshot()
	res = LogoutResult{Success: true, Announce: announce}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("logout panicked")
		}
		s.Clear(ctx)
		s.publisher.Publish(ctx, events.New(events.TypeLogout, snap.Username, ReasonLogout))
		res = LogoutResult{Success: true, Announce: announce}
	}()

	if snap.RefreshToken == "" || s.revoker == nil {
		return res
	}

	lctx, cancel := context.WithTimeout(ctx, s.policy.LogoutTimeout)
	defer cancel()
	if err := s.revoker.Logout(lctx, snap.RefreshToken, snap.AccessToken); err != nil {
		s.logger.Warn().Err(err).Msg("server logout failed, clearing locally")
	}
	return res
}

// stamp sets the expiry from the token presence.
func (s *Store) stamp(next Session) Session {
	if next.HasToken() {
		next.AccessTokenExpiry = s.clock.Now().Add(s.policy.TokenTTL)
	} else {
		next.AccessTokenExpiry = time.Time{}
	}
	return next
}

// commit swaps memory and then persists. Caller holds writeMu.
func (s *Store) commit(ctx context.Context, next Session) Session {
	s.mu.Lock()
	s.cur = next
	s.mu.Unlock()

	s.persist(context.WithoutCancel(ctx), next)
	return next.clone()
}

// persist writes or removes every key. Failures are logged and swallowed;
// memory stays authoritative.
func (s *Store) persist(ctx context.Context, next Session) {
	for key, value := range encode(next) {
		var err error
		if value == "" {
			err = s.storage.Remove(ctx, key)
		} else {
			err = s.storage.Set(ctx, key, value)
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("session persistence failed")
		}
	}
}
