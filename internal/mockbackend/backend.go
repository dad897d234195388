// Package mockbackend is an in-process stand-in for the platform's auth
// API: simplejwt-style login, refresh, verify and logout, a protected
// /api tree with csrf checks and a notification websocket. Tests and
// `sessionctl mock` run against it.
package mockbackend

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/kochabx/authsession/authapi"
	"github.com/kochabx/authsession/log"
	"github.com/kochabx/authsession/transport/http/middleware"
)

// User is an account the backend accepts.
type User struct {
	Username                string
	Password                string
	UserID                  string
	UserType                string
	DjangoUserType          string
	ProjectID               int
	Grade                   string
	Department              string
	IsApproved              bool
	HasSubmittedDetails     bool
	IsPasswordResetRequired bool
}

// DefaultUser is seeded when no users are configured.
var DefaultUser = User{
	Username:            "alice",
	Password:            "s3cret",
	UserID:              "42",
	UserType:            "contractor",
	DjangoUserType:      "supervisor",
	ProjectID:           7,
	Grade:               "B",
	Department:          "HSE",
	IsApproved:          true,
	HasSubmittedDetails: true,
}

// Counts is how often each endpoint was hit.
type Counts struct {
	Login   int64
	Refresh int64
	Verify  int64
	Logout  int64
	API     int64
}

// Backend is safe for concurrent use.
type Backend struct {
	engine    *gin.Engine
	issuer    *issuer
	paths     authapi.Paths
	blacklist Blacklist
	logger    *log.Logger
	upgrader  websocket.Upgrader

	users map[string]User

	mu              sync.Mutex
	refreshFailures []int
	refreshDelay    time.Duration
	revokedAccess   map[string]struct{}
	sockets         map[*socket]struct{}

	login, refresh, verify, logout, api atomic.Int64
}

type Option func(*Backend)

func WithUsers(users ...User) Option {
	return func(b *Backend) {
		for _, u := range users {
			b.users[u.Username] = u
		}
	}
}

func WithSecret(secret string) Option {
	return func(b *Backend) {
		b.issuer.secret = []byte(secret)
	}
}

// WithClock drives token issue and expiry times.
func WithClock(c clockwork.Clock) Option {
	return func(b *Backend) {
		b.issuer.clock = c
	}
}

func WithTTL(access, refresh time.Duration) Option {
	return func(b *Backend) {
		b.issuer.accessTTL = access
		b.issuer.refreshTTL = refresh
	}
}

func WithBlacklist(bl Blacklist) Option {
	return func(b *Backend) {
		b.blacklist = bl
	}
}

func WithLogger(l *log.Logger) Option {
	return func(b *Backend) {
		b.logger = l
	}
}

// New builds the backend. Without WithUsers it knows DefaultUser.
func New(opts ...Option) *Backend {
	b := &Backend{
		issuer: &issuer{
			secret:     []byte("mockbackend-secret"),
			accessTTL:  time.Hour,
			refreshTTL: 24 * time.Hour,
			clock:      clockwork.NewRealClock(),
		},
		paths:         authapi.DefaultPaths(),
		logger:        log.G(),
		users:         make(map[string]User),
		revokedAccess: make(map[string]struct{}),
		sockets:       make(map[*socket]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if len(b.users) == 0 {
		b.users[DefaultUser.Username] = DefaultUser
	}
	if b.blacklist == nil {
		b.blacklist = NewMemoryBlacklist(b.issuer.clock)
	}
	b.engine = b.routes()
	return b
}

// Handler serves the whole API.
func (b *Backend) Handler() http.Handler {
	return b.engine
}

// Engine exposes the gin engine so callers can mount extra routes.
func (b *Backend) Engine() *gin.Engine {
	return b.engine
}

// FailRefresh makes the next len(statuses) refresh calls answer with those
// statuses and a non-rejection body.
func (b *Backend) FailRefresh(statuses ...int) {
	b.mu.Lock()
	b.refreshFailures = append(b.refreshFailures, statuses...)
	b.mu.Unlock()
}

// SetRefreshDelay slows every refresh call down.
func (b *Backend) SetRefreshDelay(d time.Duration) {
	b.mu.Lock()
	b.refreshDelay = d
	b.mu.Unlock()
}

// RevokeAccess makes /api answer "Token is blacklisted" for token.
func (b *Backend) RevokeAccess(token string) error {
	claims, err := b.issuer.parse(token, typeAccess)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.revokedAccess[claims.ID] = struct{}{}
	b.mu.Unlock()
	return nil
}

// IssueAccess signs an access token for username, e.g. to plant a stale
// token in a test.
func (b *Backend) IssueAccess(username string) (string, error) {
	u, ok := b.users[username]
	if !ok {
		u = User{Username: username}
	}
	token, _, err := b.issuer.issue(u, typeAccess)
	return token, err
}

func (b *Backend) Counts() Counts {
	return Counts{
		Login:   b.login.Load(),
		Refresh: b.refresh.Load(),
		Verify:  b.verify.Load(),
		Logout:  b.logout.Load(),
		API:     b.api.Load(),
	}
}

func (b *Backend) routes() *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(b.logger), middleware.Logger(middleware.LoggerConfig{
		Header:    true,
		SkipPaths: []string{"/health"},
		Logger:    b.logger,
	}))

	r.POST(b.paths.Login, b.handleLogin)
	r.POST(b.paths.Refresh, b.handleRefresh)
	r.POST(b.paths.Verify, b.handleVerify)
	r.POST(b.paths.Logout, b.handleLogout)
	r.GET("/ws/notifications/", b.handleSocket)

	api := r.Group("/api", b.authenticate, b.checkCSRF)
	api.Any("/*path", b.handleAPI)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	return r
}
