package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kochabx/authsession/core/tag"
)

// Config configures the event producer.
type Config struct {
	Brokers  []string `json:"brokers" mapstructure:"brokers" default:"localhost:9092"`
	Username string   `json:"username" mapstructure:"username"`
	Password string   `json:"password" mapstructure:"password"`

	// least_bytes or hash. hash partitions by message key (the username), so
	// one user's events stay ordered.
	Balancer               string `json:"balancer" mapstructure:"balancer" default:"hash" validate:"oneof=least_bytes hash"`
	AllowAutoTopicCreation bool   `json:"allow_auto_topic_creation" mapstructure:"allow_auto_topic_creation"`
	Async                  bool   `json:"async" mapstructure:"async"`

	BatchTimeout time.Duration `json:"batch_timeout" mapstructure:"batch_timeout" default:"100ms"`
	WriteTimeout time.Duration `json:"write_timeout" mapstructure:"write_timeout" default:"5s"`
	CloseTimeout time.Duration `json:"close_timeout" mapstructure:"close_timeout" default:"5s"`
}

func (c *Config) ApplyDefaults() error {
	return tag.ApplyDefaults(c)
}

func (c *Config) balancer() kafka.Balancer {
	if c.Balancer == "least_bytes" {
		return &kafka.LeastBytes{}
	}
	return &kafka.Hash{}
}
