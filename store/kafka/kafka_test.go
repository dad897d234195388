package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/authsession/log"
)

func TestNewDefaults(t *testing.T) {
	c, err := New(&Config{}, log.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:9092"}, c.config.Brokers)
	assert.Equal(t, 5*time.Second, c.config.WriteTimeout)
	assert.IsType(t, &kafka.Hash{}, c.config.balancer())
}

func TestNewNilConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestProducerCached(t *testing.T) {
	c, err := New(&Config{Balancer: "least_bytes"}, log.Nop())
	require.NoError(t, err)

	a := c.Producer("session-events")
	b := c.Producer("session-events")
	assert.Same(t, a, b)
	assert.NotSame(t, a, c.Producer("other"))

	w := a.(*kafka.Writer)
	assert.Equal(t, "session-events", w.Topic)
	assert.IsType(t, &kafka.LeastBytes{}, w.Balancer)

	require.NoError(t, c.Close())
}
