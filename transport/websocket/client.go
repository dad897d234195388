// Package websocket is the authenticated notification channel. It dials
// with the session's bearer token, re-dials with a refreshed token when
// the handshake is rejected with 401 and reconnects with backoff when the
// connection drops.
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kochabx/authsession/core/scheduler"
	"github.com/kochabx/authsession/errors"
	"github.com/kochabx/authsession/log"
	"github.com/kochabx/authsession/refresh"
)

// TokenSource supplies the bearer token for the handshake.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (refresh.Result, error)
}

// Client is a reconnecting notification client.
type Client struct {
	cfg     Config
	tokens  TokenSource
	dialer  *websocket.Dialer
	backoff scheduler.Backoff
	logger  *log.Logger

	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
	conn     *websocket.Conn
	writeMu  sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

func WithBackoff(b scheduler.Backoff) Option {
	return func(c *Client) {
		c.backoff = b
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithDialer replaces the gorilla dialer, e.g. to set TLS options.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// New creates a client for cfg.URL. Zero durations in cfg fall back to the
// defaults.
func New(cfg Config, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid websocket scheme: %s", u.Scheme)
	}
	cfg = withDefaults(cfg)

	c := &Client{
		cfg:      cfg,
		tokens:   tokens,
		dialer:   &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout, Proxy: http.ProxyFromEnvironment},
		logger:   log.G(),
		handlers: make(map[EventType][]EventHandler),
		backoff: scheduler.NewExponentialBackoff(
			cfg.Reconnect.Interval, cfg.Reconnect.MaxInterval, cfg.Reconnect.Multiplier, true,
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func withDefaults(cfg Config) Config {
	def := defaultConfig()
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.Reconnect.Interval <= 0 {
		cfg.Reconnect.Interval = def.Reconnect.Interval
	}
	if cfg.Reconnect.MaxInterval <= 0 {
		cfg.Reconnect.MaxInterval = def.Reconnect.MaxInterval
	}
	if cfg.Reconnect.Multiplier < 1 {
		cfg.Reconnect.Multiplier = def.Reconnect.Multiplier
	}
	return cfg
}

// OnEvent registers h for t. Register handlers before Run.
func (c *Client) OnEvent(t EventType, h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[t] = append(c.handlers[t], h)
}

// Connected reports whether a connection is open.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// SendText writes one text frame on the open connection.
func (c *Client) SendText(data []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("websocket: not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Run dials and serves until ctx is done, reconnecting in between. It
// returns nil on cancellation and an error when the session is gone or
// the retries are spent.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		conn, err := c.dial(ctx)
		if err == nil {
			attempt = 0
			c.emit(Event{Type: EventConnected})
			err = c.serve(ctx, conn)
			c.emit(Event{Type: EventDisconnected, Err: err})
		}
		if ctx.Err() != nil {
			return nil
		}
		c.emit(Event{Type: EventError, Err: err})

		if errors.IsTerminal(err) || errors.Is(err, errors.ErrSessionExpired) {
			return err
		}
		if !c.cfg.Reconnect.Enable {
			return err
		}
		if c.cfg.Reconnect.MaxRetries > 0 && attempt >= c.cfg.Reconnect.MaxRetries {
			return fmt.Errorf("websocket: max reconnection attempts reached: %w", err)
		}

		delay := c.backoff.Next(attempt)
		attempt++
		c.logger.Debug().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("websocket reconnecting")
		c.emit(Event{Type: EventReconnecting, Attempt: attempt, Delay: delay})

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil
		}
	}
}

// dial opens the connection. A 401 handshake triggers one refresh and one
// more dial with the new token.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, bearer(token))
	if err == nil {
		return conn, nil
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		return nil, err
	}

	res, rerr := c.tokens.Refresh(ctx)
	if rerr != nil {
		return nil, rerr
	}
	if res.Token == "" || res.Token == token {
		return nil, errors.ErrSessionExpired
	}
	conn, _, err = c.dialer.DialContext(ctx, c.cfg.URL, bearer(res.Token))
	return conn, err
}

func bearer(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// serve reads until the connection fails or ctx ends.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	done := make(chan struct{})
	defer func() {
		close(done)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	conn.SetReadLimit(c.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	go func() {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				c.writeMu.Lock()
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				c.writeMu.Unlock()
				conn.Close()
				return
			case <-ticker.C:
				c.writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout))
				c.writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.emit(Event{Type: EventMessage, Data: data})
	}
}

func (c *Client) emit(e Event) {
	e.At = time.Now()
	c.mu.RLock()
	handlers := c.handlers[e.Type]
	c.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}
