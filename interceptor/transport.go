// Package interceptor provides the http.RoundTripper every backend call
// goes through. It attaches credentials and turns a stale-token 401 into a
// refresh followed by a replay.
package interceptor

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kochabx/authsession/authapi"
	"github.com/kochabx/authsession/errors"
	"github.com/kochabx/authsession/log"
	"github.com/kochabx/authsession/refresh"
	"github.com/kochabx/authsession/session"
)

// maxErrorBody caps how much of a 401 body is inspected.
const maxErrorBody = 64 << 10

// TokenSource is the part of refresh.Coordinator the transport needs.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (refresh.Result, error)
}

// Session is the part of session.Store the transport needs.
type Session interface {
	Snapshot() session.Session
	ForceLogout(ctx context.Context, reason string)
}

// Transport is safe for concurrent use.
type Transport struct {
	opts   options
	sess   Session
	tokens TokenSource

	mu          sync.Mutex
	refreshing  bool
	queue       []*waiter
	generations int
}

// waiter is a request that hit 401 while a refresh was running. The
// goroutine that ran the refresh replays it and sends the outcome on done.
type waiter struct {
	req  *http.Request
	done chan replayResult
}

type replayResult struct {
	resp *http.Response
	err  error
}

// New wraps sess and tokens. Requests go to http.DefaultTransport unless
// WithBase says otherwise.
func New(sess Session, tokens TokenSource, opts ...Option) *Transport {
	o := options{
		base:            http.DefaultTransport,
		authPaths:       authapi.DefaultPaths().All(),
		exempt:          DefaultExemptPatterns,
		terminalPhrases: DefaultTerminalPhrases,
		maxGenerations:  1,
		proactive:       true,
		logger:          log.G(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Transport{opts: o, sess: sess, tokens: tokens}
}

// Client returns an *http.Client using t.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t, Jar: t.opts.jar}
}

// Reset forgets spent refresh generations. Call it after a fresh login.
func (t *Transport) Reset() {
	t.mu.Lock()
	t.generations = 0
	t.mu.Unlock()
}

// Pending returns the number of queued requests.
func (t *Transport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	r, err := t.prepare(req)
	if err != nil {
		return nil, err
	}

	token := t.token(r.Context())
	if token != "" {
		r.Header.Set(HeaderAuthorization, "Bearer "+token)
	}

	resp, err := t.opts.base.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if !t.recoverable(r, resp) {
		return resp, nil
	}
	return t.recover(r, resp, token)
}

// prepare clones req, rewrites alias hosts, buffers the body for replay and
// sets the request id and csrf headers.
func (t *Transport) prepare(req *http.Request) (*http.Request, error) {
	r := req.Clone(req.Context())

	if target, ok := t.opts.rewrites[r.URL.Host]; ok {
		t.opts.logger.Debug().Str("from", r.URL.Host).Str("to", target).Msg("rewriting request host")
		r.URL.Host = target
		r.Host = ""
	}

	if r.Body != nil && r.Body != http.NoBody && r.GetBody == nil {
		raw, err := io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			return nil, err
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(raw)), nil
		}
	}

	if r.Header.Get(HeaderRequestID) == "" {
		r.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if r.Method != http.MethodGet && t.opts.jar != nil {
		for _, c := range t.opts.jar.Cookies(r.URL) {
			if c.Name == CookieCSRF {
				r.Header.Set(HeaderCSRF, c.Value)
				break
			}
		}
	}
	return r, nil
}

func (t *Transport) token(ctx context.Context) string {
	if !t.opts.proactive || IsRetried(ctx) {
		return t.sess.Snapshot().AccessToken
	}
	token, err := t.tokens.Token(ctx)
	if err != nil {
		t.opts.logger.Warn().Err(err).Msg("proactive refresh failed")
		return t.sess.Snapshot().AccessToken
	}
	return token
}

// recoverable reports whether resp is a 401 this transport should act on.
func (t *Transport) recoverable(r *http.Request, resp *http.Response) bool {
	if resp.StatusCode != http.StatusUnauthorized {
		return false
	}
	if IsRetried(r.Context()) {
		return false
	}
	path := r.URL.Path
	for _, p := range t.opts.authPaths {
		if p != "" && strings.HasSuffix(path, p) {
			return false
		}
	}
	for _, p := range t.opts.exempt {
		if p != "" && strings.Contains(path, p) {
			return false
		}
	}
	return true
}

func (t *Transport) recover(r *http.Request, resp *http.Response, sent string) (*http.Response, error) {
	ctx := r.Context()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()

	if authapi.ContainsPhrase(authapi.ParseErrorBody(raw).Text(), t.opts.terminalPhrases) {
		t.forceLogout(ctx, session.ReasonAuthenticationFailed)
		return nil, errors.ErrAuthenticationFailed
	}

	t.mu.Lock()
	if t.refreshing {
		w := &waiter{req: r, done: make(chan replayResult, 1)}
		t.queue = append(t.queue, w)
		t.opts.metrics.QueueDepth(len(t.queue))
		t.mu.Unlock()

		t.opts.logger.Debug().Str("path", r.URL.Path).Msg("request queued behind token refresh")
		select {
		case res := <-w.done:
			return res.resp, res.err
		case <-ctx.Done():
			// drain still answers; close what nobody reads
			go func() {
				if res := <-w.done; res.resp != nil {
					res.resp.Body.Close()
				}
			}()
			return nil, ctx.Err()
		}
	}
	// A refresh finished after this request went out with the old token.
	if cur := t.sess.Snapshot().AccessToken; cur != "" && cur != sent {
		t.mu.Unlock()
		t.opts.logger.Debug().Str("path", r.URL.Path).Msg("token renewed while request was in flight, replaying")
		return t.replay(r, cur)
	}
	if t.generations >= t.opts.maxGenerations {
		t.mu.Unlock()
		t.forceLogout(ctx, session.ReasonSessionExpired)
		return nil, errors.ErrSessionExpired
	}
	t.refreshing = true
	t.generations++
	t.mu.Unlock()

	token, err := t.refresh(ctx, sent)
	waiters := t.finish()

	if err != nil {
		for _, w := range waiters {
			w.done <- replayResult{err: err}
			t.opts.metrics.Replay("rejected")
		}
		return nil, err
	}

	resp, err = t.replay(r, token)
	if len(waiters) > 0 {
		go t.drain(waiters, token)
	}
	return resp, err
}

// refresh asks the coordinator for a new token and maps the outcome to the
// token to replay with or the error to hand every waiter. The call is not
// tied to ctx so that queued requests are served even if the first caller
// gives up.
func (t *Transport) refresh(ctx context.Context, sent string) (string, error) {
	res, err := t.tokens.Refresh(context.WithoutCancel(ctx))
	if err != nil {
		switch {
		case errors.Is(err, errors.ErrRefreshRejected):
			// the coordinator already cleared the session
			return "", errors.ErrAuthenticationFailed
		case errors.IsTerminal(err):
			t.forceLogout(ctx, session.ReasonAuthenticationFailed)
			return "", errors.ErrAuthenticationFailed
		default:
			t.opts.logger.Warn().Err(err).Msg("token refresh failed")
			return "", errors.ErrSessionExpired
		}
	}

	switch res.Outcome {
	case refresh.OutcomeRefreshed:
		return res.Token, nil
	case refresh.OutcomeCooldown:
		t.forceLogout(ctx, session.ReasonSessionExpired)
		return "", errors.ErrSessionExpired
	default:
		// Another caller may have renewed the token after this request was
		// sent; that token is worth one replay.
		if res.Token != "" && res.Token != sent {
			return res.Token, nil
		}
		t.opts.logger.Warn().Stringer("outcome", res.Outcome).Msg("no new token, rejecting request")
		return "", errors.ErrSessionExpired
	}
}

// finish leaves the refreshing state and takes the queue in one step.
func (t *Transport) finish() []*waiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	waiters := t.queue
	t.queue = nil
	t.refreshing = false
	t.opts.metrics.QueueDepth(0)
	return waiters
}

// drain replays queued requests one after another in arrival order,
// skipping those whose caller has gone.
func (t *Transport) drain(waiters []*waiter, token string) {
	for _, w := range waiters {
		if err := w.req.Context().Err(); err != nil {
			w.done <- replayResult{err: err}
			continue
		}
		resp, err := t.replay(w.req, token)
		w.done <- replayResult{resp: resp, err: err}
	}
}

// replay resends r once with token. A replay that is not rejected with 401
// gives the generation back.
func (t *Transport) replay(r *http.Request, token string) (*http.Response, error) {
	rr := r.Clone(WithRetried(r.Context()))
	if r.GetBody != nil {
		body, err := r.GetBody()
		if err != nil {
			t.opts.metrics.Replay("error")
			return nil, err
		}
		rr.Body = body
	}
	rr.Header.Set(HeaderAuthorization, "Bearer "+token)

	resp, err := t.opts.base.RoundTrip(rr)
	if err != nil {
		t.opts.metrics.Replay("error")
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		t.opts.metrics.Replay("unauthorized")
	} else {
		t.opts.metrics.Replay("ok")
		t.Reset()
	}
	return resp, nil
}

func (t *Transport) forceLogout(ctx context.Context, reason string) {
	t.opts.metrics.ForcedLogout(reason)
	t.sess.ForceLogout(context.WithoutCancel(ctx), reason)
}
