package events

import (
	"fmt"
	"io"
	"time"

	"github.com/kochabx/authsession/log"
	"github.com/kochabx/authsession/store/kafka"
)

const defaultReleaseTimeout = 5 * time.Second

// Config selects the event sink.
type Config struct {
	// none, log or kafka
	Driver string        `json:"driver" mapstructure:"driver" default:"log" validate:"oneof=none log kafka"`
	Topic  string        `json:"topic" mapstructure:"topic" default:"authsession.events"`
	Kafka  *kafka.Config `json:"kafka" mapstructure:"kafka"`
	// PoolSize > 0 publishes through an ants pool
	PoolSize int `json:"pool_size" mapstructure:"pool_size" default:"4"`
}

// Open builds the configured publisher. The returned closer releases the
// pool and kafka producers.
func Open(c Config, logger *log.Logger) (Publisher, io.Closer, error) {
	var (
		pub     Publisher
		closers closeAll
	)
	switch c.Driver {
	case "none", "":
		return Noop{}, closers, nil
	case "log":
		pub = NewLog(logger)
	case "kafka":
		cfg := c.Kafka
		if cfg == nil {
			cfg = &kafka.Config{}
		}
		client, err := kafka.New(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, client)
		pub = NewKafka(client.Producer(c.Topic), logger)
	default:
		return nil, nil, fmt.Errorf("events: unknown driver %q", c.Driver)
	}

	if c.PoolSize > 0 {
		async, err := NewAsync(pub, c.PoolSize, logger)
		if err != nil {
			_ = closers.Close()
			return nil, nil, err
		}
		// release the pool before the producers it writes to
		closers = append(closeAll{async}, closers...)
		pub = async
	}
	return pub, closers, nil
}

type closeAll []io.Closer

func (c closeAll) Close() error {
	var first error
	for _, cl := range c {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
