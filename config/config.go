package config

import (
	"sync"

	"github.com/spf13/viper"

	"github.com/kochabx/authsession/core/validator"
	"github.com/kochabx/authsession/log"
)

// Config loads a target struct and keeps it current.
type Config struct {
	mu       sync.RWMutex
	viper    *viper.Viper
	validate validator.Validator
	target   any
	loader   Loader
	file     string
	optional bool
	onChange []func()
}

// New creates a Config bound to target. Without options it reads
// ./config.yaml.
func New(target any, opts ...Option) *Config {
	c := &Config{
		viper:    viper.New(),
		validate: validator.Validate,
		target:   target,
		file:     "config.yaml",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.loader == nil {
		fl := NewFileLoader(c.file, []string{"."}, c.viper, c.validate)
		fl.optional = c.optional
		c.loader = fl
	}
	return c
}

// Load reads the configuration into the target.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loader.Load(c.target)
}

// Watch reloads the target on every change and then runs the registered
// callbacks. A reload that fails validation is logged and skipped.
func (c *Config) Watch() error {
	return c.loader.Watch(func() {
		log.Info().Msg("config change detected")
		if err := c.Load(); err != nil {
			log.Error().Err(err).Msg("failed to reload config after change")
			return
		}
		c.mu.RLock()
		callbacks := c.onChange
		c.mu.RUnlock()
		for _, fn := range callbacks {
			fn()
		}
		log.Info().Msg("config reloaded successfully")
	})
}

// OnChange registers fn to run after a successful reload.
func (c *Config) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = append(c.onChange, fn)
	c.mu.Unlock()
}

// Viper returns the underlying viper instance.
func (c *Config) Viper() *viper.Viper {
	return c.viper
}
