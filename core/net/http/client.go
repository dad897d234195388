package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultBufferSize = 4096
	maxBufferSize     = 1024 * 1024
	// responses larger than this are truncated; auth payloads are small
	maxBodySize = 1024 * 1024
)

// Doer sends a request. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a JSON client bound to a base URL.
type Client struct {
	doer       Doer
	baseURL    string
	timeout    time.Duration
	bufferPool sync.Pool
}

// Option configures the client.
type Option func(*Client)

// WithDoer sets the transport client.
func WithDoer(d Doer) Option {
	return func(c *Client) {
		c.doer = d
	}
}

// WithBaseURL prefixes every relative path.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout bounds each request unless the caller's context is shorter.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New creates a client. Without WithDoer it uses a plain *http.Client.
func New(opts ...Option) *Client {
	c := &Client{
		doer: &http.Client{},
		bufferPool: sync.Pool{
			New: func() any {
				return bytes.NewBuffer(make([]byte, 0, defaultBufferSize))
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestOption holds per-request settings.
type RequestOption struct {
	header   map[string]string
	response any
}

// WithHeader adds headers.
func WithHeader(header map[string]string) func(*RequestOption) {
	return func(opt *RequestOption) {
		maps.Copy(opt.header, header)
	}
}

// WithBearer sets the Authorization header when token is non-empty.
func WithBearer(token string) func(*RequestOption) {
	return func(opt *RequestOption) {
		if token != "" {
			opt.header["Authorization"] = "Bearer " + token
		}
	}
}

// WithResponse decodes a 2xx body into v.
func WithResponse(v any) func(*RequestOption) {
	return func(opt *RequestOption) {
		opt.response = v
	}
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// StatusError is returned by Err for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d", e.StatusCode)
}

// Err returns a *StatusError unless the status is 2xx.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &StatusError{StatusCode: r.StatusCode, Body: r.Body}
}

// Request sends body as JSON (nil sends none) and reads the whole response.
// A non-2xx status is not an error here; callers inspect Response.
func (c *Client) Request(ctx context.Context, method, path string, body any, opts ...func(*RequestOption)) (*Response, error) {
	opt := &RequestOption{header: map[string]string{"Accept": ContentTypeJSON}}
	for _, o := range opts {
		o(opt)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, method, c.url(path), body)
	if err != nil {
		return nil, err
	}
	for k, v := range opt.header {
		req.Header.Set(k, v)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}
	if opt.response != nil && out.OK() {
		if err := out.Decode(opt.response); err != nil {
			return out, fmt.Errorf("decode response: %w", err)
		}
	}
	return out, nil
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) newRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	if body == nil {
		return http.NewRequestWithContext(ctx, method, url, nil)
	}

	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		if buf.Cap() <= maxBufferSize {
			c.bufferPool.Put(buf)
		}
	}()
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		return nil, err
	}
	// copy out of the pooled buffer so GetBody stays valid after return
	payload := bytes.Clone(buf.Bytes())

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", ContentTypeJSON)
	return req, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...func(*RequestOption)) (*Response, error) {
	return c.Request(ctx, http.MethodGet, path, nil, opts...)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...func(*RequestOption)) (*Response, error) {
	return c.Request(ctx, http.MethodPost, path, body, opts...)
}
