package log

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/kochabx/authsession/core/tag"
	"github.com/kochabx/authsession/log/desensitize"
	"github.com/kochabx/authsession/log/writer"
)

// Logger wraps a zerolog.Logger together with the files it writes to.
type Logger struct {
	zerolog.Logger
	hook   *desensitize.Hook
	closer io.Closer
}

func init() {
	zerolog.TimeFieldFormat = time.DateTime
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
}

// Hook returns the masking hook, or nil when masking is off.
func (l *Logger) Hook() *desensitize.Hook {
	return l.hook
}

// Close releases log files.
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// New writes to w, or to the console when w is nil.
func New(w io.Writer, opts ...Option) *Logger {
	if w == nil {
		w = writer.Console(nil)
	}
	l := &Logger{}
	o := options{level: zerolog.InfoLevel}
	for _, opt := range opts {
		opt(&o)
	}
	l.hook = o.hook
	if l.hook != nil {
		w = desensitize.NewWriter(w, l.hook)
	}
	ctx := zerolog.New(w).Level(o.level).With().Timestamp()
	if o.caller {
		ctx = ctx.Caller()
	}
	l.Logger = ctx.Logger()
	return l
}

func NewFromConfig(c Config) (*Logger, error) {
	if err := tag.ApplyDefaults(&c); err != nil {
		return nil, fmt.Errorf("apply log defaults: %w", err)
	}
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	opts := []Option{WithLevel(level)}
	if c.Caller {
		opts = append(opts, WithCaller())
	}
	if c.Desensitize {
		opts = append(opts, WithDesensitize(desensitize.NewHook(desensitize.BuiltinRules()...)))
	}

	var writers []io.Writer
	if c.Console {
		if c.JSON {
			writers = append(writers, os.Stderr)
		} else {
			writers = append(writers, writer.Console(nil))
		}
	}

	var closer io.Closer
	if c.File != nil {
		fw, err := writer.File(c.File.options())
		if err != nil {
			return nil, err
		}
		writers = append(writers, fw)
		closer = fw
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = io.Discard
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	l := New(out, opts...)
	l.closer = closer
	return l, nil
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}
