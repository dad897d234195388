// Package authapi is the REST client for the backend authentication
// endpoints: login, token refresh, token verify and logout.
package authapi

import (
	"context"
	"net/http"
	"time"

	khttp "github.com/kochabx/authsession/core/net/http"
	"github.com/kochabx/authsession/errors"
	"github.com/kochabx/authsession/log"
)

// Paths are the endpoint paths relative to the API base URL.
type Paths struct {
	Login   string `json:"login" mapstructure:"login" default:"/authentication/login/"`
	Refresh string `json:"refresh" mapstructure:"refresh" default:"/authentication/token/refresh/"`
	Verify  string `json:"verify" mapstructure:"verify" default:"/authentication/token/verify/"`
	Logout  string `json:"logout" mapstructure:"logout" default:"/authentication/logout/"`
}

// All returns the non-empty paths.
func (p Paths) All() []string {
	out := make([]string, 0, 4)
	for _, s := range []string{p.Login, p.Refresh, p.Verify, p.Logout} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// DefaultPaths returns the standard endpoint layout.
func DefaultPaths() Paths {
	return Paths{
		Login:   "/authentication/login/",
		Refresh: "/authentication/token/refresh/",
		Verify:  "/authentication/token/verify/",
		Logout:  "/authentication/logout/",
	}
}

// Client calls the auth endpoints.
type Client struct {
	http   *khttp.Client
	paths  Paths
	logger *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithPaths overrides endpoint paths.
func WithPaths(p Paths) Option {
	return func(c *Client) {
		c.paths = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for baseURL. doer must not be the intercepted
// client, or a 401 on refresh would recurse into the interceptor.
func New(baseURL string, doer khttp.Doer, opts ...Option) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Client{
		http:   khttp.New(khttp.WithBaseURL(baseURL), khttp.WithDoer(doer)),
		paths:  DefaultPaths(),
		logger: log.G(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Paths returns the configured endpoint paths.
func (c *Client) Paths() Paths {
	return c.paths
}

// Login exchanges credentials for a token pair and profile.
func (c *Client) Login(ctx context.Context, cred Credentials) (*LoginResponse, error) {
	var out LoginResponse
	resp, err := c.http.Post(ctx, c.paths.Login, cred, khttp.WithResponse(&out))
	if err != nil {
		return nil, errors.ErrAuthenticationFailed.WithCause(err).WithMetadata(map[string]string{"stage": "transport"})
	}
	switch {
	case resp.OK() && out.Access != "":
		return &out, nil
	case resp.OK():
		return nil, errors.ErrAuthenticationFailed.WithMetadata(map[string]string{"stage": "decode"})
	default:
		body := ParseErrorBody(resp.Body)
		return nil, errors.ErrAuthenticationFailed.WithCause(resp.Err()).WithMetadata(map[string]string{
			"status": http.StatusText(resp.StatusCode),
			"detail": body.Detail,
		})
	}
}

// Refresh exchanges refreshToken for a new access token.
//
// ErrRefreshRejected means the refresh token is dead (401 with
// token_not_valid or a known phrase). ErrRefreshUnavailable covers
// transport failures, 5xx, other statuses and malformed payloads.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var out refreshResponse
	resp, err := c.http.Post(ctx, c.paths.Refresh, refreshRequest{Refresh: refreshToken}, khttp.WithResponse(&out))
	if err != nil {
		return "", errors.ErrRefreshUnavailable.WithCause(err)
	}
	if resp.OK() {
		if out.Access == "" {
			return "", errors.ErrRefreshUnavailable.WithMetadata(map[string]string{"detail": "missing access token"})
		}
		return out.Access, nil
	}
	if resp.StatusCode == http.StatusUnauthorized && IsRefreshRejection(resp.Body) {
		return "", errors.ErrRefreshRejected.WithCause(resp.Err()).WithMetadata(map[string]string{
			"detail": ParseErrorBody(resp.Body).Detail,
		})
	}
	return "", errors.ErrRefreshUnavailable.WithCause(resp.Err())
}

// Verify reports whether the backend still accepts token.
func (c *Client) Verify(ctx context.Context, token string) (bool, error) {
	resp, err := c.http.Post(ctx, c.paths.Verify, verifyRequest{Token: token})
	if err != nil {
		return false, err
	}
	switch {
	case resp.OK():
		return true, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		return false, nil
	default:
		return false, resp.Err()
	}
}

// Logout revokes refreshToken. Every status below 500 counts as done.
func (c *Client) Logout(ctx context.Context, refreshToken, accessToken string) error {
	resp, err := c.http.Post(ctx, c.paths.Logout, refreshRequest{Refresh: refreshToken}, khttp.WithBearer(accessToken))
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return resp.Err()
	}
	if !resp.OK() {
		c.logger.Debug().Int("status", resp.StatusCode).Msg("logout not acknowledged by server")
	}
	return nil
}
