package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/authsession/store/redis"
)

func TestWindow(t *testing.T) {
	ctx := context.Background()
	w := NewWindow(3, 5*time.Minute)
	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	for i := range 3 {
		ok, _, err := w.Allow(ctx, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, retryAt, err := w.Allow(ctx, base.Add(3*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, base.Add(5*time.Minute), retryAt)
	assert.Equal(t, 3, w.Count(base.Add(3*time.Minute)))

	// first attempt leaves the window exactly at base+5m
	ok, _, _ = w.Allow(ctx, base.Add(5*time.Minute))
	assert.True(t, ok)
	assert.Equal(t, 3, w.Count(base.Add(5*time.Minute)))
}

func TestWindowReset(t *testing.T) {
	ctx := context.Background()
	w := NewWindow(1, time.Minute)
	now := time.Now()

	ok, _, _ := w.Allow(ctx, now)
	require.True(t, ok)
	ok, _, _ = w.Allow(ctx, now)
	require.False(t, ok)

	require.NoError(t, w.Reset(ctx))
	ok, _, _ = w.Allow(ctx, now)
	assert.True(t, ok)
}

func TestSlidingWindowLimiter(t *testing.T) {
	ctx := context.Background()
	client, err := redis.New(ctx, redis.Single("localhost:6379"))
	if err != nil {
		t.Skipf("Skipping test (Redis not available): %v", err)
	}
	defer client.Close()

	l := NewSlidingWindowLimiter(client.UniversalClient(), "authsession:test:refresh-budget", 2, time.Minute)
	require.NoError(t, l.Reset(ctx))
	defer l.Reset(ctx)

	now := time.Now()
	for range 2 {
		ok, _, err := l.Allow(ctx, now)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, retryAt, err := l.Allow(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.WithinDuration(t, now.Add(time.Minute), retryAt, time.Millisecond)
}
