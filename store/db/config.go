package db

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kochabx/authsession/core/tag"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Config for the sql storage. sqlite only needs Path; the other drivers use
// the network fields.
type Config struct {
	Driver Driver `json:"driver" mapstructure:"driver" default:"sqlite" validate:"oneof=sqlite postgres mysql"`

	// sqlite
	Path        string `json:"path" mapstructure:"path" default:"./authsession.db"`
	JournalMode string `json:"journal_mode" mapstructure:"journal_mode" default:"WAL"`
	BusyTimeout int    `json:"busy_timeout" mapstructure:"busy_timeout" default:"5000"`

	// postgres / mysql
	Host     string `json:"host" mapstructure:"host" default:"localhost"`
	Port     int    `json:"port" mapstructure:"port"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database" default:"authsession"`
	SSLMode  string `json:"ssl_mode" mapstructure:"ssl_mode" default:"disable"`

	MaxIdleConns    int           `json:"max_idle_conns" mapstructure:"max_idle_conns" default:"2"`
	MaxOpenConns    int           `json:"max_open_conns" mapstructure:"max_open_conns" default:"10"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" mapstructure:"conn_max_lifetime" default:"1h"`

	// silent, error, warn, info
	LogLevel string `json:"log_level" mapstructure:"log_level" default:"silent"`
}

// Init fills in defaults.
func (c *Config) Init() error {
	if err := tag.ApplyDefaults(c); err != nil {
		return err
	}
	if c.Port == 0 {
		switch c.Driver {
		case DriverPostgres:
			c.Port = 5432
		case DriverMySQL:
			c.Port = 3306
		}
	}
	if c.Driver == DriverSQLite {
		// one connection for a single-file database
		c.MaxOpenConns = 1
		c.MaxIdleConns = 1
	}
	return nil
}

func (c *Config) DSN() (string, error) {
	switch c.Driver {
	case DriverSQLite:
		return fmt.Sprintf("file:%s?_journal_mode=%s&_busy_timeout=%d", c.Path, c.JournalMode, c.BusyTimeout), nil
	case DriverPostgres:
		var b strings.Builder
		fmt.Fprintf(&b, "host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
		return b.String(), nil
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=%s",
			c.User, c.Password, c.Host, c.Port, c.Database, url.QueryEscape("Local")), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}
}
