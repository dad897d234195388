package authsession

import (
	"time"

	"github.com/kochabx/authsession/authapi"
	"github.com/kochabx/authsession/core/scheduler"
	"github.com/kochabx/authsession/events"
	"github.com/kochabx/authsession/log"
	"github.com/kochabx/authsession/refresh"
	"github.com/kochabx/authsession/session"
	"github.com/kochabx/authsession/storage"
	"github.com/kochabx/authsession/store/redis"
	"github.com/kochabx/authsession/transport/websocket"
)

// Config is everything a Manager needs. It is usually loaded with the
// config package from a yaml file; zero fields take their default tag.
type Config struct {
	// BaseURL is the API root, e.g. https://ehs.example.com
	BaseURL string        `json:"base_url" mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" default:"30s" validate:"gt=0"`

	Paths       authapi.Paths     `json:"paths" mapstructure:"paths"`
	Session     session.Policy    `json:"session" mapstructure:"session"`
	Refresh     refresh.Policy    `json:"refresh" mapstructure:"refresh"`
	RateLimit   RateLimitConfig   `json:"rate_limit" mapstructure:"rate_limit"`
	Interceptor InterceptorConfig `json:"interceptor" mapstructure:"interceptor"`

	Storage storage.Config `json:"storage" mapstructure:"storage"`
	Events  events.Config  `json:"events" mapstructure:"events"`
	Log     log.Config     `json:"log" mapstructure:"log"`

	Keepalive     scheduler.KeepaliveConfig `json:"keepalive" mapstructure:"keepalive"`
	Notifications websocket.Config          `json:"notifications" mapstructure:"notifications"`
	Admin         AdminConfig               `json:"admin" mapstructure:"admin"`
}

// RateLimitConfig selects where the refresh attempt budget is counted.
// With redis, every process sharing the key shares one budget.
type RateLimitConfig struct {
	Driver string        `json:"driver" mapstructure:"driver" default:"memory" validate:"oneof=memory redis"`
	Key    string        `json:"key" mapstructure:"key" default:"authsession:refresh"`
	Redis  *redis.Config `json:"redis" mapstructure:"redis" validate:"required_if=Driver redis"`
}

// InterceptorConfig tunes the request chain.
type InterceptorConfig struct {
	// HostRewrites maps alias hosts to the public host.
	HostRewrites    map[string]string `json:"host_rewrites" mapstructure:"host_rewrites"`
	ExemptPatterns  []string          `json:"exempt_patterns" mapstructure:"exempt_patterns"`
	TerminalPhrases []string          `json:"terminal_phrases" mapstructure:"terminal_phrases"`
	MaxGenerations  int               `json:"max_generations" mapstructure:"max_generations" default:"1" validate:"gte=1"`
	// DisableProactive skips the expiry check before each request.
	DisableProactive bool `json:"disable_proactive" mapstructure:"disable_proactive"`
}

// AdminConfig is the local status/metrics listener used by `sessionctl watch`.
type AdminConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr" default:"127.0.0.1:9464"`
}
