package interceptor

import (
	"net/http"

	"github.com/kochabx/authsession/log"
	"github.com/kochabx/authsession/metrics"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderCSRF          = "X-CSRFToken"
	HeaderRequestID     = "X-Request-ID"

	CookieCSRF = "csrftoken"
)

// DefaultTerminalPhrases mark a 401 whose access token was revoked rather
// than merely stale. Such a response is not worth a refresh.
var DefaultTerminalPhrases = []string{
	"blacklisted",
	"token invalid",
	"invalid token",
}

// DefaultExemptPatterns select endpoints whose 401/403 is handed to the
// caller untouched.
var DefaultExemptPatterns = []string{
	"participant-response",
}

type options struct {
	base            http.RoundTripper
	jar             http.CookieJar
	rewrites        map[string]string
	authPaths       []string
	exempt          []string
	terminalPhrases []string
	maxGenerations  int
	proactive       bool
	logger          *log.Logger
	metrics         *metrics.Metrics
}

// Option configures a Transport.
type Option func(*options)

// WithBase sets the transport that actually sends requests.
func WithBase(rt http.RoundTripper) Option {
	return func(o *options) {
		if rt != nil {
			o.base = rt
		}
	}
}

// WithCookieJar sets the jar the csrftoken cookie is read from.
func WithCookieJar(jar http.CookieJar) Option {
	return func(o *options) {
		o.jar = jar
	}
}

// WithHostRewrite sends requests for alias to target instead.
// target may carry a port.
func WithHostRewrite(alias, target string) Option {
	return func(o *options) {
		if o.rewrites == nil {
			o.rewrites = make(map[string]string)
		}
		o.rewrites[alias] = target
	}
}

// WithAuthPaths sets the login, refresh, verify and logout paths. A 401
// from them is a credential failure and is returned as is.
func WithAuthPaths(paths ...string) Option {
	return func(o *options) {
		o.authPaths = paths
	}
}

func WithExemptPatterns(patterns ...string) Option {
	return func(o *options) {
		o.exempt = patterns
	}
}

func WithTerminalPhrases(phrases ...string) Option {
	return func(o *options) {
		o.terminalPhrases = phrases
	}
}

// WithMaxGenerations bounds how many refresh-and-replay rounds may run
// before a replayed request comes back 2xx or 4xx other than 401.
func WithMaxGenerations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxGenerations = n
		}
	}
}

// WithProactive makes every request ask the coordinator for a token first,
// which renews it when it is about to expire.
func WithProactive(on bool) Option {
	return func(o *options) {
		o.proactive = on
	}
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
