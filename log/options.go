package log

import (
	"github.com/rs/zerolog"

	"github.com/kochabx/authsession/log/desensitize"
)

type options struct {
	level  zerolog.Level
	caller bool
	hook   *desensitize.Hook
}

type Option func(*options)

func WithLevel(level zerolog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithCaller adds file:line to every entry.
func WithCaller() Option {
	return func(o *options) {
		o.caller = true
	}
}

// WithDesensitize masks credentials before output.
func WithDesensitize(hook *desensitize.Hook) Option {
	return func(o *options) {
		o.hook = hook
	}
}
