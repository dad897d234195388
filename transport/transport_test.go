package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateAddress(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:9464":      true,
		":8080":               true,
		"localhost:443":       true,
		"[::1]:80":            true,
		"":                    false,
		"localhost":           false,
		"localhost:0":         false,
		"localhost:70000":     false,
		"bad_host:80":         false,
		"-leading.example:80": false,
	}
	for addr, want := range cases {
		assert.Equal(t, want, ValidateAddress(addr), addr)
	}
}

func TestLoop(t *testing.T) {
	started := make(chan struct{})
	l := NewLoop(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- l.Run() }()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, l.Shutdown(ctx))
	assert.NoError(t, <-done)
}
