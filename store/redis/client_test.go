package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/authsession/log"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Single("localhost:6379")
	require.NoError(t, cfg.ApplyDefaults())
	assert.Equal(t, 3, cfg.Protocol)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.Equal(t, "single", cfg.Mode())
}

func TestConfigMode(t *testing.T) {
	assert.Equal(t, "cluster", (&Config{Addrs: []string{"a:1", "b:1"}}).Mode())
	assert.Equal(t, "sentinel", (&Config{Addrs: []string{"a:1"}, MasterName: "m"}).Mode())
}

func TestConfigValidate(t *testing.T) {
	assert.ErrorIs(t, (&Config{}).Validate(), ErrEmptyAddrs)
	assert.ErrorIs(t, (&Config{Addrs: []string{"a:1"}, DialTimeout: -1}).Validate(), ErrInvalidTimeout)
}

func TestNewNilConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSingleMode(t *testing.T) {
	ctx := context.Background()
	client, err := New(ctx, Single("localhost:6379"), WithDebug(50*time.Millisecond), WithLogger(log.Nop()))
	if err != nil {
		t.Skipf("Skipping test (Redis not available): %v", err)
	}
	defer client.Close()

	key := "authsession:test:key"
	require.NoError(t, client.UniversalClient().Set(ctx, key, "v", time.Minute).Err())
	got, err := client.UniversalClient().Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	client.UniversalClient().Del(ctx, key)
}
