package etcd

import (
	"time"

	"github.com/kochabx/authsession/core/tag"
)

type Config struct {
	Endpoints        []string      `json:"endpoints" mapstructure:"endpoints" default:"localhost:2379"`
	Username         string        `json:"username" mapstructure:"username"`
	Password         string        `json:"password" mapstructure:"password"`
	DialTimeout      time.Duration `json:"dial_timeout" mapstructure:"dial_timeout" default:"5s"`
	KeepAliveTime    time.Duration `json:"keep_alive_time" mapstructure:"keep_alive_time" default:"30s"`
	KeepAliveTimeout time.Duration `json:"keep_alive_timeout" mapstructure:"keep_alive_timeout" default:"5s"`
	// each session key is stored as Prefix + key
	Prefix string `json:"prefix" mapstructure:"prefix" default:"/authsession/"`
}

func (c *Config) init() error {
	return tag.ApplyDefaults(c)
}
