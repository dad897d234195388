package log

import (
	"time"

	"github.com/kochabx/authsession/log/writer"
)

// Config is the log section of the config file.
type Config struct {
	Level       string      `json:"level" mapstructure:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Console     bool        `json:"console" mapstructure:"console" default:"true"`
	JSON        bool        `json:"json" mapstructure:"json"`
	Caller      bool        `json:"caller" mapstructure:"caller"`
	Desensitize bool        `json:"desensitize" mapstructure:"desensitize" default:"true"`
	File        *FileConfig `json:"file" mapstructure:"file"`
}

// FileConfig enables file output next to or instead of the console.
type FileConfig struct {
	Dir          string          `json:"dir" mapstructure:"dir" default:"log"`
	Name         string          `json:"name" mapstructure:"name" default:"authsession"`
	Ext          string          `json:"ext" mapstructure:"ext" default:"log"`
	Rotation     writer.Rotation `json:"rotation" mapstructure:"rotation" default:"time" validate:"oneof=time size"`
	MaxAge       time.Duration   `json:"max_age" mapstructure:"max_age" default:"24h"`
	RotationTime time.Duration   `json:"rotation_time" mapstructure:"rotation_time" default:"1h"`
	MaxSizeMB    int             `json:"max_size_mb" mapstructure:"max_size_mb" default:"100"`
	MaxBackups   int             `json:"max_backups" mapstructure:"max_backups" default:"5"`
	MaxAgeDays   int             `json:"max_age_days" mapstructure:"max_age_days" default:"30"`
	Compress     bool            `json:"compress" mapstructure:"compress"`
}

func (c *FileConfig) options() writer.FileOptions {
	return writer.FileOptions{
		Dir:          c.Dir,
		Name:         c.Name,
		Ext:          c.Ext,
		Rotation:     c.Rotation,
		MaxAge:       c.MaxAge,
		RotationTime: c.RotationTime,
		MaxSizeMB:    c.MaxSizeMB,
		MaxBackups:   c.MaxBackups,
		MaxAgeDays:   c.MaxAgeDays,
		Compress:     c.Compress,
	}
}
