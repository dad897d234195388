package websocket

import "time"

// Config configures the notification client.
type Config struct {
	// URL is the ws:// or wss:// endpoint.
	URL              string          `json:"url" mapstructure:"url" validate:"omitempty,url"`
	HandshakeTimeout time.Duration   `json:"handshake_timeout" mapstructure:"handshake_timeout" default:"10s"`
	PingInterval     time.Duration   `json:"ping_interval" mapstructure:"ping_interval" default:"30s"`
	PongWait         time.Duration   `json:"pong_wait" mapstructure:"pong_wait" default:"60s"`
	WriteTimeout     time.Duration   `json:"write_timeout" mapstructure:"write_timeout" default:"10s"`
	MaxMessageSize   int64           `json:"max_message_size" mapstructure:"max_message_size" default:"65536"`
	Reconnect        ReconnectConfig `json:"reconnect" mapstructure:"reconnect"`
}

// ReconnectConfig bounds re-dialing after a dropped connection.
type ReconnectConfig struct {
	Enable      bool          `json:"enable" mapstructure:"enable" default:"true"`
	Interval    time.Duration `json:"interval" mapstructure:"interval" default:"1s"`
	MaxInterval time.Duration `json:"max_interval" mapstructure:"max_interval" default:"30s"`
	Multiplier  float64       `json:"multiplier" mapstructure:"multiplier" default:"2"`
	// MaxRetries of 0 retries forever.
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`
}

func defaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PongWait:         60 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxMessageSize:   64 << 10,
		Reconnect: ReconnectConfig{
			Enable:      true,
			Interval:    time.Second,
			MaxInterval: 30 * time.Second,
			Multiplier:  2,
		},
	}
}
