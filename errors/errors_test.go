package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(401, "unauthorized access")
	assert.Equal(t, 401, err.GetCode())
	assert.Equal(t, "unauthorized access", err.GetMessage())
	assert.Equal(t, "code=401, message=unauthorized access", err.Error())
}

func TestWithMetadata(t *testing.T) {
	err := New(401, "unauthorized")

	assert.Same(t, err, err.WithMetadata(nil))

	err2 := err.WithMetadata(map[string]string{"path": "/api/permits/"})
	assert.NotSame(t, err, err2)
	assert.Equal(t, "/api/permits/", err2.Metadata["path"])
	assert.Nil(t, err.Metadata)
}

func TestWithCause(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := ErrRefreshUnavailable.WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrRefreshUnavailable)
	assert.Nil(t, ErrRefreshUnavailable.GetCause())
}

func TestIsByReason(t *testing.T) {
	wrapped := fmt.Errorf("replay: %w", ErrSessionExpired.WithCause(errors.New("boom")))

	assert.ErrorIs(t, wrapped, ErrSessionExpired)
	assert.NotErrorIs(t, wrapped, ErrAuthenticationFailed)
	assert.Equal(t, 401, Code(wrapped))
	assert.Equal(t, UnknownCode, Code(errors.New("plain")))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(ErrAuthenticationFailed))
	assert.True(t, IsTerminal(fmt.Errorf("x: %w", ErrRefreshRejected)))
	assert.True(t, IsTerminal(ErrNoRefreshToken))
	assert.False(t, IsTerminal(ErrSessionExpired))
	assert.False(t, IsTerminal(ErrRefreshUnavailable))
	assert.False(t, IsTerminal(nil))
}

func TestFromError(t *testing.T) {
	plain := errors.New("standard error")
	assert.Equal(t, UnknownCode, FromError(plain).GetCode())
	assert.ErrorIs(t, FromError(plain), plain)

	assert.Same(t, ErrSessionExpired, FromError(ErrSessionExpired))
	assert.Nil(t, FromError(nil))
	assert.Nil(t, Wrap(nil, 500, "nothing"))
}

func BenchmarkErrorString(b *testing.B) {
	err := New(500, "internal server error").
		WithMetadata(map[string]string{"service": "auth", "version": "v1"}).
		WithCause(errors.New("storage error"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = err.Error()
	}
}
