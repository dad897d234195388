package writer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation selects how log files roll over.
type Rotation string

const (
	// RotationTime rolls on a schedule (rotatelogs).
	RotationTime Rotation = "time"
	// RotationSize rolls at a size limit (lumberjack).
	RotationSize Rotation = "size"
)

type FileOptions struct {
	Dir      string
	Name     string
	Ext      string
	Rotation Rotation

	MaxAge       time.Duration // time: how long files are kept
	RotationTime time.Duration // time: how often a new file starts

	MaxSizeMB  int  // size: per-file limit
	MaxBackups int  // size: rotated files kept
	MaxAgeDays int  // size: days rotated files are kept
	Compress   bool // size: gzip rotated files
}

// Console writes human-readable lines to w.
func Console(w io.Writer) zerolog.ConsoleWriter {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.DateTime,
		FormatLevel: func(i any) string {
			return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
		},
	}
}

// File opens a rotating file. The result also implements io.Closer.
func File(o FileOptions) (io.WriteCloser, error) {
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	switch o.Rotation {
	case RotationTime, "":
		w, err := rotatelogs.New(
			o.path("%Y%m%d%H%M"),
			rotatelogs.WithLinkName(o.path("")),
			rotatelogs.WithMaxAge(o.MaxAge),
			rotatelogs.WithRotationTime(o.RotationTime),
		)
		if err != nil {
			return nil, fmt.Errorf("create time rotate writer: %w", err)
		}
		return w, nil
	case RotationSize:
		return &lumberjack.Logger{
			Filename:   o.path(""),
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAgeDays,
			Compress:   o.Compress,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported rotation: %q", o.Rotation)
	}
}

func (o FileOptions) path(format string) string {
	name := o.Name
	if format != "" {
		name += "." + format
	}
	return filepath.Join(o.Dir, name+"."+o.Ext)
}
