package events

import (
	"context"

	"github.com/kochabx/authsession/log"
)

// Log writes events as structured log lines.
type Log struct {
	logger *log.Logger
}

func NewLog(logger *log.Logger) *Log {
	if logger == nil {
		logger = log.G()
	}
	return &Log{logger: logger}
}

func (l *Log) Publish(_ context.Context, e Event) {
	ev := l.logger.Info()
	if e.Type == TypeForcedLogout || e.Type == TypeRefreshFailed {
		ev = l.logger.Warn()
	}
	ev.Str("event", string(e.Type)).
		Str("event_id", e.ID).
		Str("username", e.Username).
		Str("reason", e.Reason).
		Msg("session event")
}
