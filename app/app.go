// Package app runs a session holder: servers and client loops under one
// errgroup, stopped by signal, followed by ordered close functions.
package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kochabx/authsession/log"
	"github.com/kochabx/authsession/transport"
)

var (
	ErrAlreadyStarted = errors.New("application already started")
	ErrClosePanic     = errors.New("close function panicked")
)

// Application owns the lifecycle of its servers and close functions.
type Application struct {
	ctx             context.Context
	cancel          context.CancelFunc
	shutdownTimeout time.Duration
	signals         []os.Signal
	servers         []transport.Server
	closeFuncs      []CloseFunc
	closeTimeout    time.Duration
	mu              sync.RWMutex
	started         bool
}

// CloseFunc is run once at shutdown with its own timeout.
type CloseFunc struct {
	Name    string
	Fn      func(context.Context) error
	Timeout time.Duration
}

type Option func(*Application)

// WithContext sets the root context. Cancelling it stops the application.
func WithContext(ctx context.Context) Option {
	return func(app *Application) {
		if ctx != nil {
			app.ctx, app.cancel = context.WithCancel(ctx)
		}
	}
}

func WithShutdownTimeout(timeout time.Duration) Option {
	return func(app *Application) {
		if timeout > 0 {
			app.shutdownTimeout = timeout
		}
	}
}

func WithCloseTimeout(timeout time.Duration) Option {
	return func(app *Application) {
		if timeout > 0 {
			app.closeTimeout = timeout
		}
	}
}

func WithSignals(signals ...os.Signal) Option {
	return func(app *Application) {
		if len(signals) > 0 {
			app.signals = append([]os.Signal(nil), signals...)
		}
	}
}

func WithServer(server transport.Server) Option {
	return func(app *Application) {
		if server != nil {
			app.servers = append(app.servers, server)
		}
	}
}

func WithServers(servers ...transport.Server) Option {
	return func(app *Application) {
		for _, server := range servers {
			if server != nil {
				app.servers = append(app.servers, server)
			}
		}
	}
}

// WithClose registers fn. A zero timeout uses the close timeout.
func WithClose(name string, fn func(context.Context) error, timeout time.Duration) Option {
	return func(app *Application) {
		if fn == nil {
			log.Warn().Str("name", name).Msg("nil close function ignored")
			return
		}
		if timeout == 0 {
			timeout = app.closeTimeout
		}
		app.closeFuncs = append(app.closeFuncs, CloseFunc{Name: name, Fn: fn, Timeout: timeout})
	}
}

func New(options ...Option) *Application {
	app := &Application{
		shutdownTimeout: 30 * time.Second,
		closeTimeout:    30 * time.Second,
		signals:         []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT},
	}
	app.ctx, app.cancel = context.WithCancel(context.Background())

	for _, opt := range options {
		opt(app)
	}
	return app
}

// AddServer adds a server before Start.
func (app *Application) AddServer(server transport.Server) error {
	if server == nil {
		return errors.New("server cannot be nil")
	}

	app.mu.Lock()
	defer app.mu.Unlock()

	if app.started {
		return ErrAlreadyStarted
	}
	app.servers = append(app.servers, server)
	return nil
}

// RegisterClose adds a close function at any time before shutdown.
func (app *Application) RegisterClose(name string, fn func(context.Context) error, timeout time.Duration) error {
	if fn == nil {
		return errors.New("close function cannot be nil")
	}

	app.mu.Lock()
	defer app.mu.Unlock()

	if timeout == 0 {
		timeout = app.closeTimeout
	}
	app.closeFuncs = append(app.closeFuncs, CloseFunc{Name: name, Fn: fn, Timeout: timeout})
	return nil
}

// Start runs every server and blocks until a signal, Stop, the root
// context or a failing server ends it. Close functions run afterwards.
func (app *Application) Start() error {
	app.mu.Lock()
	if app.started {
		app.mu.Unlock()
		return ErrAlreadyStarted
	}
	app.started = true
	servers := append([]transport.Server(nil), app.servers...)
	signals := append([]os.Signal(nil), app.signals...)
	app.mu.Unlock()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)
	defer signal.Stop(sigCh)

	eg, egCtx := errgroup.WithContext(app.ctx)

	for _, server := range servers {
		eg.Go(func() error {
			if err := server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-egCtx.Done()
			ctx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout)
			defer cancel()
			return server.Shutdown(ctx)
		})
	}

	eg.Go(func() error {
		select {
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
			app.cancel()
			return nil
		case <-egCtx.Done():
			if errors.Is(egCtx.Err(), context.Canceled) {
				return nil
			}
			return egCtx.Err()
		}
	})

	err := eg.Wait()
	app.runCloseTasks()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Stop begins a graceful shutdown.
func (app *Application) Stop() {
	app.cancel()
}

// runCloseTasks runs close functions in reverse registration order, so
// what was opened last is closed first.
func (app *Application) runCloseTasks() {
	app.mu.RLock()
	closeFuncs := append([]CloseFunc(nil), app.closeFuncs...)
	app.mu.RUnlock()

	for i := len(closeFuncs) - 1; i >= 0; i-- {
		_ = app.runCloseTask(closeFuncs[i])
	}
}

func (app *Application) runCloseTask(cf CloseFunc) error {
	ctx, cancel := context.WithTimeout(context.Background(), cf.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("close", cf.Name).Msg("close function panicked")
				done <- ErrClosePanic
			}
		}()
		done <- cf.Fn(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Error().Err(err).Str("close", cf.Name).Msg("close function failed")
		}
		return err
	case <-ctx.Done():
		log.Warn().Str("close", cf.Name).Msg("close function timed out")
		return ctx.Err()
	}
}

// Info returns a status snapshot.
func (app *Application) Info() ApplicationInfo {
	app.mu.RLock()
	defer app.mu.RUnlock()

	return ApplicationInfo{
		Started:     app.started,
		ServerCount: len(app.servers),
		CloseCount:  len(app.closeFuncs),
	}
}

type ApplicationInfo struct {
	Started     bool `json:"started"`
	ServerCount int  `json:"server_count"`
	CloseCount  int  `json:"close_count"`
}
