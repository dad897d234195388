package config

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/kochabx/authsession/core/tag"
	"github.com/kochabx/authsession/core/validator"
	"github.com/kochabx/authsession/errors"
)

// FileLoader loads configuration from a yaml/json/toml file with environment
// variable overrides (SESSION_TOKEN_TTL overrides session.token_ttl).
type FileLoader struct {
	viper    *viper.Viper
	validate validator.Validator
	optional bool
}

// NewFileLoader locates name in paths. When name contains a directory
// component it is used as an explicit file path.
func NewFileLoader(name string, paths []string, v *viper.Viper, validate validator.Validator) *FileLoader {
	if filepath.Base(name) != name {
		v.SetConfigFile(name)
	} else {
		for _, p := range paths {
			v.AddConfigPath(p)
		}
		v.SetConfigName(strings.TrimSuffix(name, filepath.Ext(name)))
		if ext := strings.TrimPrefix(filepath.Ext(name), "."); ext != "" {
			v.SetConfigType(ext)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &FileLoader{viper: v, validate: validate}
}

// Load applies `default` tags, reads the file, unmarshals and validates.
func (l *FileLoader) Load(target any) error {
	if err := tag.ApplyDefaults(target); err != nil {
		return errors.New(500, "failed to apply defaults: %v", err)
	}

	if err := l.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !l.optional || !errors.As(err, &notFound) {
			return errors.New(404, "config file not found: %v", err)
		}
	}

	if err := l.viper.Unmarshal(target); err != nil {
		return errors.New(500, "config parse error: %v", err)
	}

	if l.validate != nil {
		if err := l.validate.Struct(target); err != nil {
			return errors.New(400, "config validation failed: %v", err).WithCause(err)
		}
	}
	return nil
}

// Watch implements Loader.
func (l *FileLoader) Watch(callback func()) error {
	l.viper.OnConfigChange(func(fsnotify.Event) {
		if callback != nil {
			callback()
		}
	})
	l.viper.WatchConfig()
	return nil
}
