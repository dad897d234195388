package session

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kochabx/authsession/events"
	"github.com/kochabx/authsession/log"
	"github.com/kochabx/authsession/storage"
)

// Policy holds the store's time constants.
type Policy struct {
	// TokenTTL is added to the assignment time to get the access token
	// expiry; it sits under the server lifetime.
	TokenTTL time.Duration `json:"token_ttl" mapstructure:"token_ttl" default:"55m" validate:"gt=0"`
	// ValidityBuffer marks the session invalid this long before expiry.
	ValidityBuffer time.Duration `json:"validity_buffer" mapstructure:"validity_buffer" default:"2m" validate:"gte=0"`
	// LogoutTimeout bounds the server logout call.
	LogoutTimeout time.Duration `json:"logout_timeout" mapstructure:"logout_timeout" default:"10s" validate:"gt=0"`
}

// DefaultPolicy returns 55m / 2m / 10s.
func DefaultPolicy() Policy {
	return Policy{
		TokenTTL:       55 * time.Minute,
		ValidityBuffer: 2 * time.Minute,
		LogoutTimeout:  10 * time.Second,
	}
}

// Option configures a Store.
type Option func(*Store)

func WithStorage(s storage.Storage) Option {
	return func(st *Store) {
		st.storage = s
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(st *Store) {
		st.clock = c
	}
}

func WithLogger(l *log.Logger) Option {
	return func(st *Store) {
		st.logger = l
	}
}

func WithPolicy(p Policy) Option {
	return func(st *Store) {
		st.policy = p
	}
}

func WithRevoker(r Revoker) Option {
	return func(st *Store) {
		st.revoker = r
	}
}

func WithNavigator(n Navigator) Option {
	return func(st *Store) {
		st.navigator = n
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(st *Store) {
		st.publisher = p
	}
}
