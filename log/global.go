package log

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/kochabx/authsession/log/desensitize"
)

var global atomic.Pointer[Logger]

func init() {
	global.Store(New(nil, WithDesensitize(desensitize.NewHook(desensitize.BuiltinRules()...))))
}

// G returns the process-wide logger.
func G() *Logger {
	return global.Load()
}

func SetGlobal(l *Logger) {
	if l != nil {
		global.Store(l)
	}
}

func Debug() *zerolog.Event { return G().Debug() }
func Info() *zerolog.Event  { return G().Info() }
func Warn() *zerolog.Event  { return G().Warn() }

// Error logs with a stack trace.
func Error() *zerolog.Event { return G().Error().Stack() }

func Debugf(format string, args ...any) { G().Debug().Msgf(format, args...) }
func Infof(format string, args ...any)  { G().Info().Msgf(format, args...) }
func Warnf(format string, args ...any)  { G().Warn().Msgf(format, args...) }
func Errorf(format string, args ...any) { G().Error().Stack().Msgf(format, args...) }
