package config

import (
	"github.com/spf13/viper"

	"github.com/kochabx/authsession/core/validator"
)

// Option configures a Config.
type Option func(*Config)

// WithViper sets a custom viper instance.
func WithViper(v *viper.Viper) Option {
	return func(c *Config) {
		c.viper = v
	}
}

// WithValidator sets a custom validator.
func WithValidator(v validator.Validator) Option {
	return func(c *Config) {
		c.validate = v
	}
}

// WithFile reads the given file name (searched in ".") or path.
func WithFile(file string) Option {
	return func(c *Config) {
		c.file = file
	}
}

// WithOptional tolerates a missing config file; defaults and environment
// still apply.
func WithOptional() Option {
	return func(c *Config) {
		c.optional = true
	}
}

// WithLoader replaces the file loader.
func WithLoader(l Loader) Option {
	return func(c *Config) {
		c.loader = l
	}
}
