// Package transport defines what the application lifecycle runs: local
// servers and long-lived client loops.
package transport

import (
	"context"
	"net"
	"strconv"
	"sync"
)

const (
	MinPort = 1
	MaxPort = 65535
)

// Server is started by Run, which blocks, and stopped by Shutdown.
type Server interface {
	Run() error
	Shutdown(context.Context) error
}

// Loop adapts a context-driven function, such as a websocket client's Run,
// to Server. Shutdown cancels the context and waits for fn to return.
type Loop struct {
	fn     func(ctx context.Context) error
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewLoop(fn func(ctx context.Context) error) *Loop {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{fn: fn, ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

func (l *Loop) Run() error {
	defer l.once.Do(func() { close(l.done) })
	return l.fn(l.ctx)
}

func (l *Loop) Shutdown(ctx context.Context) error {
	l.cancel()
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ValidateAddress reports whether addr is host:port with a usable port.
// The host may be empty.
func ValidateAddress(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return false
	}
	if host != "" && !isValidHost(host) {
		return false
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return p >= MinPort && p <= MaxPort
}

func isValidHost(host string) bool {
	if net.ParseIP(host) != nil {
		return true
	}
	if len(host) > 253 {
		return false
	}
	for i, r := range host {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-'
		if !ok {
			return false
		}
		if r == '-' && (i == 0 || i == len(host)-1) {
			return false
		}
	}
	return true
}
