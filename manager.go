// Package authsession is the client-side session and request authentication
// manager. A Manager owns one session: it logs in, keeps the access token
// fresh, and hands out an *http.Client whose transport signs every request
// and recovers from expired tokens transparently.
//
//	m, err := authsession.New(ctx, cfg)
//	if err != nil { ... }
//	defer m.Close()
//	if _, err := m.Login(ctx, "alice", "s3cret"); err != nil { ... }
//	resp, err := m.HTTPClient().Get(cfg.BaseURL + "/api/permits/")
package authsession

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"github.com/kochabx/authsession/authapi"
	"github.com/kochabx/authsession/core/rate"
	"github.com/kochabx/authsession/core/scheduler"
	"github.com/kochabx/authsession/core/tag"
	"github.com/kochabx/authsession/core/validator"
	"github.com/kochabx/authsession/errors"
	"github.com/kochabx/authsession/events"
	"github.com/kochabx/authsession/interceptor"
	"github.com/kochabx/authsession/log"
	"github.com/kochabx/authsession/metrics"
	"github.com/kochabx/authsession/refresh"
	"github.com/kochabx/authsession/session"
	"github.com/kochabx/authsession/storage"
	"github.com/kochabx/authsession/store/redis"
	khttp "github.com/kochabx/authsession/transport/http"
	"github.com/kochabx/authsession/transport/http/middleware"
	"github.com/kochabx/authsession/transport/http/response"
	"github.com/kochabx/authsession/transport/websocket"
)

// Option customizes a Manager beyond what Config expresses.
type Option func(*Manager)

// WithLogger replaces the logger built from Config.Log.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithNavigator receives every redirect-to-login decision.
func WithNavigator(n session.Navigator) Option {
	return func(m *Manager) {
		m.navigator = n
	}
}

// WithStorage replaces the backend built from Config.Storage. The caller
// keeps ownership of s.
func WithStorage(s storage.Storage) Option {
	return func(m *Manager) {
		m.storage = s
	}
}

// WithMetrics registers collectors on an existing set.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithBaseTransport sets the round tripper under the interceptor.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(m *Manager) {
		m.base = rt
	}
}

// WithClock is for tests.
func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithPublisher adds a sink next to the configured one.
func WithPublisher(p events.Publisher) Option {
	return func(m *Manager) {
		m.extra = append(m.extra, p)
	}
}

// Manager is safe for concurrent use.
type Manager struct {
	cfg Config

	logger    *log.Logger
	navigator session.Navigator
	storage   storage.Storage
	metrics   *metrics.Metrics
	base      http.RoundTripper
	clock     clockwork.Clock
	extra     []events.Publisher

	publisher events.Publisher
	api       *authapi.Client
	store     *session.Store
	coord     *refresh.Coordinator
	transport *interceptor.Transport
	client    *http.Client

	closers []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// New builds the components from cfg and restores the persisted session.
// A session that cannot be read is logged and treated as logged out.
func New(ctx context.Context, cfg Config, opts ...Option) (*Manager, error) {
	if err := tag.ApplyDefaults(&cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := validator.Validate.StructCtx(ctx, cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	m := &Manager{cfg: cfg}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.init(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manager) init(ctx context.Context) error {
	cfg := m.cfg

	if m.logger == nil {
		l, err := log.NewFromConfig(cfg.Log)
		if err != nil {
			return err
		}
		m.logger = l
		m.closers = append(m.closers, namedCloser{"logger", l})
	}
	if m.metrics == nil {
		m.metrics = metrics.New(metrics.WithGoCollector())
	}
	if m.clock == nil {
		m.clock = clockwork.NewRealClock()
	}
	if m.base == nil {
		m.base = http.DefaultTransport
	}

	if m.storage == nil {
		s, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return errors.ErrStorageUnavailable.WithCause(err)
		}
		m.storage = s
		m.closers = append(m.closers, namedCloser{"storage", s})
	}

	pub, closer, err := events.Open(cfg.Events, m.logger)
	if err != nil {
		return err
	}
	m.closers = append(m.closers, namedCloser{"events", closer})
	if len(m.extra) > 0 {
		pub = append(events.Multi{pub}, m.extra...)
	}
	m.publisher = pub

	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	// auth endpoints never go through the interceptor
	raw := &http.Client{Transport: m.base, Jar: jar, Timeout: cfg.Timeout}
	m.api = authapi.New(cfg.BaseURL, raw,
		authapi.WithPaths(cfg.Paths),
		authapi.WithLogger(m.logger),
	)

	sessOpts := []session.Option{
		session.WithStorage(m.storage),
		session.WithClock(m.clock),
		session.WithLogger(m.logger),
		session.WithPolicy(cfg.Session),
		session.WithRevoker(m.api),
		session.WithPublisher(pub),
	}
	if m.navigator != nil {
		sessOpts = append(sessOpts, session.WithNavigator(m.navigator))
	}
	m.store = session.New(sessOpts...)
	if err := m.store.Hydrate(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("restore session failed, starting logged out")
	}

	limiter, err := m.limiter(ctx)
	if err != nil {
		return err
	}
	m.coord = refresh.New(m.store, m.api,
		refresh.WithPolicy(cfg.Refresh),
		refresh.WithLimiter(limiter),
		refresh.WithLogger(m.logger),
		refresh.WithPublisher(pub),
		refresh.WithMetrics(m.metrics),
	)

	icfg := cfg.Interceptor
	iopts := []interceptor.Option{
		interceptor.WithBase(m.base),
		interceptor.WithCookieJar(jar),
		interceptor.WithAuthPaths(cfg.Paths.All()...),
		interceptor.WithMaxGenerations(icfg.MaxGenerations),
		interceptor.WithProactive(!icfg.DisableProactive),
		interceptor.WithLogger(m.logger),
		interceptor.WithMetrics(m.metrics),
	}
	for alias, target := range icfg.HostRewrites {
		iopts = append(iopts, interceptor.WithHostRewrite(alias, target))
	}
	if len(icfg.ExemptPatterns) > 0 {
		iopts = append(iopts, interceptor.WithExemptPatterns(icfg.ExemptPatterns...))
	}
	if len(icfg.TerminalPhrases) > 0 {
		iopts = append(iopts, interceptor.WithTerminalPhrases(icfg.TerminalPhrases...))
	}
	m.transport = interceptor.New(m.store, m.coord, iopts...)
	m.client = &http.Client{Transport: m.transport, Jar: jar, Timeout: cfg.Timeout}
	return nil
}

// limiter returns nil for the in-memory budget, which refresh.New builds
// from the policy itself.
func (m *Manager) limiter(ctx context.Context) (rate.Limiter, error) {
	rl := m.cfg.RateLimit
	if rl.Driver != "redis" {
		return nil, nil
	}
	client, err := redis.New(ctx, rl.Redis)
	if err != nil {
		return nil, fmt.Errorf("rate limit redis: %w", err)
	}
	m.closers = append(m.closers, namedCloser{"rate-limit-redis", client})
	key := rl.Key + ":" + m.cfg.Storage.Namespace
	return rate.NewSlidingWindowLimiter(client.UniversalClient(), key,
		m.cfg.Refresh.MaxAttempts, m.cfg.Refresh.AttemptWindow), nil
}

// Login authenticates against the backend and replaces the session.
func (m *Manager) Login(ctx context.Context, username, password string) (session.Session, error) {
	resp, err := m.api.Login(ctx, authapi.Credentials{Username: username, Password: password})
	if err != nil {
		m.logger.Warn().Err(err).Str("username", username).Msg("login failed")
		return session.Session{}, err
	}

	if resp.Username != "" {
		username = resp.Username
	}
	s := m.store.Set(ctx, session.Session{
		AccessToken:  resp.Access,
		RefreshToken: resp.Refresh,
		Identity: session.Identity{
			Username:                username,
			UserID:                  resp.UserID(),
			UserType:                resp.UserType,
			DjangoUserType:          resp.DjangoUserType,
			ProjectID:               string(resp.ProjectID),
			Department:              resp.Department,
			Grade:                   string(resp.Grade),
			IsApproved:              resp.IsApproved,
			HasSubmittedDetails:     resp.HasSubmittedDetails,
			IsPasswordResetRequired: resp.IsPasswordResetRequired,
		},
	})
	m.transport.Reset()
	m.publisher.Publish(ctx, events.New(events.TypeLogin, s.Username, ""))
	m.logger.Info().Str("username", s.Username).Msg("logged in")
	return s, nil
}

// Logout revokes the refresh token on a best-effort basis and always clears
// the local session.
func (m *Manager) Logout(ctx context.Context, announce bool) session.LogoutResult {
	return m.store.Logout(ctx, announce)
}

// Session returns a copy of the current session.
func (m *Manager) Session() session.Session {
	return m.store.Snapshot()
}

// Valid reports whether the access token is present and not about to
// expire.
func (m *Manager) Valid() bool {
	return m.store.Valid()
}

// UpdateProfile changes identity fields without touching the tokens.
func (m *Manager) UpdateProfile(ctx context.Context, fn func(*session.Identity)) session.Session {
	return m.store.Update(ctx, func(s *session.Session) {
		fn(&s.Identity)
	})
}

// Token returns an access token, refreshing first when it is close to
// expiry.
func (m *Manager) Token(ctx context.Context) (string, error) {
	return m.coord.Token(ctx)
}

// Refresh forces a refresh through the coordinator.
func (m *Manager) Refresh(ctx context.Context) (refresh.Result, error) {
	return m.coord.Refresh(ctx)
}

// Verify asks the backend whether the current access token is accepted.
func (m *Manager) Verify(ctx context.Context) (bool, error) {
	s := m.store.Snapshot()
	if !s.HasToken() {
		return false, nil
	}
	return m.api.Verify(ctx, s.AccessToken)
}

// HTTPClient returns the authenticated client. It shares the cookie jar
// with the auth endpoints so the csrf cookie set at login is sent back.
func (m *Manager) HTTPClient() *http.Client {
	return m.client
}

func (m *Manager) Store() *session.Store             { return m.store }
func (m *Manager) Coordinator() *refresh.Coordinator { return m.coord }
func (m *Manager) Metrics() *metrics.Metrics         { return m.metrics }
func (m *Manager) Logger() *log.Logger               { return m.logger }
func (m *Manager) Config() Config                    { return m.cfg }

// Keepalive builds the periodic token check from Config.Keepalive.
func (m *Manager) Keepalive() (*scheduler.Keepalive, error) {
	return scheduler.NewKeepalive(m.cfg.Keepalive, m.coord, m.logger)
}

// Notifications builds the notification socket client from
// Config.Notifications.
func (m *Manager) Notifications() (*websocket.Client, error) {
	return websocket.New(m.cfg.Notifications, m.coord, websocket.WithLogger(m.logger))
}

// Status is the token-free view of the session served by the admin server.
type Status struct {
	Username      string    `json:"username,omitempty"`
	Authenticated bool      `json:"authenticated"`
	Valid         bool      `json:"valid"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
	LastRefresh   time.Time `json:"last_refresh,omitzero"`
	RefreshState  string    `json:"refresh_state"`
	CooldownUntil time.Time `json:"cooldown_until,omitzero"`
	Pending       int       `json:"pending"`
}

// Status reports the session without exposing tokens.
func (m *Manager) Status() Status {
	s := m.store.Snapshot()
	st := m.coord.State()
	return Status{
		Username:      s.Username,
		Authenticated: s.HasToken(),
		Valid:         m.store.Valid(),
		ExpiresAt:     s.AccessTokenExpiry,
		LastRefresh:   s.LastRefresh,
		RefreshState:  st.Kind.String(),
		CooldownUntil: st.Until,
		Pending:       m.transport.Pending(),
	}
}

// AdminServer serves GET /session, /metrics and /health on Config.Admin.Addr.
func (m *Manager) AdminServer() *khttp.Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	lc := middleware.DefaultLoggerConfig()
	lc.Logger = m.logger
	r.Use(middleware.Recovery(m.logger), middleware.Logger(lc))
	r.GET("/session", func(c *gin.Context) {
		response.GinJSON(c, m.Status())
	})

	return khttp.NewServer(m.cfg.Admin.Addr, r,
		khttp.WithMeta(khttp.Meta{Name: "authsession-admin"}),
		khttp.WithMetricsOptions(khttp.MetricsOption{Enabled: true, Registry: m.metrics.Registry()}),
		khttp.WithHealthOptions(khttp.HealthOption{
			Enabled: true,
			Check: func(context.Context) error {
				if !m.store.Valid() {
					return errors.ErrSessionExpired
				}
				return nil
			},
		}),
	)
}

// Close releases everything New opened, in reverse order.
func (m *Manager) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		nc := m.closers[i]
		if nc.c == nil {
			continue
		}
		if err := nc.c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", nc.name, err))
		}
	}
	m.closers = nil
	return errors.Join(errs...)
}
