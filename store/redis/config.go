package redis

import (
	"time"

	"github.com/kochabx/authsession/core/tag"
)

// Config covers single node, cluster and sentinel deployments.
type Config struct {
	// one address for a single node, several for a cluster, sentinel
	// addresses plus MasterName for sentinel
	Addrs      []string `json:"addrs" mapstructure:"addrs" validate:"required,min=1"`
	MasterName string   `json:"master_name" mapstructure:"master_name"`
	Username   string   `json:"username" mapstructure:"username"`
	Password   string   `json:"password" mapstructure:"password"`
	DB         int      `json:"db" mapstructure:"db"`
	Protocol   int      `json:"protocol" mapstructure:"protocol" default:"3"`

	DialTimeout  time.Duration `json:"dial_timeout" mapstructure:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `json:"read_timeout" mapstructure:"read_timeout" default:"3s"`
	WriteTimeout time.Duration `json:"write_timeout" mapstructure:"write_timeout" default:"3s"`

	// 0 means 10 * GOMAXPROCS
	PoolSize     int           `json:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns" mapstructure:"min_idle_conns"`
	MaxIdleTime  time.Duration `json:"max_idle_time" mapstructure:"max_idle_time" default:"5m"`
	PoolTimeout  time.Duration `json:"pool_timeout" mapstructure:"pool_timeout" default:"4s"`

	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`
}

func (c *Config) ApplyDefaults() error {
	return tag.ApplyDefaults(c)
}

// Single is a config for one node at addr.
func Single(addr string) *Config {
	return &Config{Addrs: []string{addr}}
}

func (c *Config) Validate() error {
	if len(c.Addrs) == 0 {
		return ErrEmptyAddrs
	}
	if c.DialTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// Mode reports the deployment kind derived from the fields.
func (c *Config) Mode() string {
	switch {
	case c.MasterName != "":
		return "sentinel"
	case len(c.Addrs) > 1:
		return "cluster"
	default:
		return "single"
	}
}
