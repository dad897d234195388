package kafka

import (
	"context"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"golang.org/x/sync/errgroup"

	"github.com/kochabx/authsession/log"
)

var ErrInvalidConfig = errors.New("kafka: invalid configuration")

// Writer is satisfied by *kafka.Writer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Client keeps one producer per topic.
type Client struct {
	config    *Config
	transport *kafka.Transport
	logger    *log.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// New does not contact the brokers.
func New(cfg *Config, logger *log.Logger) (*Client, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.G()
	}

	transport := &kafka.Transport{}
	if cfg.Username != "" && cfg.Password != "" {
		transport.SASL = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
	}

	return &Client{
		config:    cfg,
		transport: transport,
		logger:    logger,
		writers:   make(map[string]*kafka.Writer),
	}, nil
}

// Producer returns the producer for topic, creating it on first use.
func (c *Client) Producer(topic string) Writer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if w, ok := c.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.config.Brokers...),
		Topic:                  topic,
		Balancer:               c.config.balancer(),
		Transport:              c.transport,
		AllowAutoTopicCreation: c.config.AllowAutoTopicCreation,
		Async:                  c.config.Async,
		BatchTimeout:           c.config.BatchTimeout,
		WriteTimeout:           c.config.WriteTimeout,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				c.logger.Warn().Err(err).Str("topic", topic).Int("count", len(messages)).Msg("kafka write failed")
			}
		},
	}
	c.writers[topic] = w
	return w
}

// Close closes every producer concurrently.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.CloseTimeout)
	defer cancel()

	c.mu.Lock()
	writers := c.writers
	c.writers = make(map[string]*kafka.Writer)
	c.mu.Unlock()

	eg, _ := errgroup.WithContext(ctx)
	for _, w := range writers {
		eg.Go(w.Close)
	}
	done := make(chan error, 1)
	go func() { done <- eg.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
