package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/authsession/transport"
)

func blockingLoop() *transport.Loop {
	return transport.NewLoop(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
}

func TestNew(t *testing.T) {
	app := New(WithServer(blockingLoop()), WithServer(nil), WithServers(nil))
	info := app.Info()
	assert.Equal(t, 1, info.ServerCount)
	assert.False(t, info.Started)
}

func TestStartStop(t *testing.T) {
	loop := blockingLoop()
	closed := make(chan struct{})
	app := New(
		WithServer(loop),
		WithClose("storage", func(context.Context) error {
			close(closed)
			return nil
		}, time.Second),
	)

	done := make(chan error, 1)
	go func() { done <- app.Start() }()

	time.Sleep(20 * time.Millisecond)
	app.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
	<-closed
	assert.True(t, app.Info().Started)
	assert.ErrorIs(t, app.Start(), ErrAlreadyStarted)
}

func TestServerFailureStopsOthers(t *testing.T) {
	boom := errors.New("websocket: session expired")
	failing := transport.NewLoop(func(context.Context) error { return boom })
	app := New(WithServers(failing, blockingLoop()))

	done := make(chan error, 1)
	go func() { done <- app.Start() }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after a server failed")
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	app := New(WithContext(ctx), WithServer(blockingLoop()))

	done := make(chan error, 1)
	go func() { done <- app.Start() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start should return for a cancelled context")
	}
}

func TestAddServer(t *testing.T) {
	app := New()
	require.NoError(t, app.AddServer(blockingLoop()))
	assert.Error(t, app.AddServer(nil))
	assert.Equal(t, 1, app.Info().ServerCount)

	app.started = true
	assert.ErrorIs(t, app.AddServer(blockingLoop()), ErrAlreadyStarted)
}

func TestCloseOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}
	app := New(WithClose("storage", record("storage"), 0))
	require.NoError(t, app.RegisterClose("keepalive", record("keepalive"), time.Second))
	assert.Error(t, app.RegisterClose("nil", nil, time.Second))

	app.runCloseTasks()
	assert.Equal(t, []string{"keepalive", "storage"}, order)
}

func TestClosePanicAndTimeout(t *testing.T) {
	app := New(
		WithClose("panic", func(context.Context) error { panic("boom") }, time.Second),
		WithClose("slow", func(context.Context) error {
			time.Sleep(2 * time.Second)
			return nil
		}, 50*time.Millisecond),
	)

	start := time.Now()
	app.runCloseTasks()
	assert.Less(t, time.Since(start), time.Second)

	assert.ErrorIs(t, app.runCloseTask(app.closeFuncs[0]), ErrClosePanic)
}
