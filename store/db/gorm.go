package db

import (
	"context"
	"errors"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrUnsupportedDriver  = errors.New("unsupported database driver")
	ErrInvalidConfig      = errors.New("invalid database configuration")
	ErrGormNotInitialized = errors.New("gorm not initialized")
)

// Gorm is the connection used by the sql session storage.
type Gorm struct {
	config *Config
	DB     *gorm.DB
}

// NewGorm opens the database and pings it.
func NewGorm(ctx context.Context, config *Config) (*Gorm, error) {
	if config == nil {
		return nil, ErrInvalidConfig
	}
	if err := config.Init(); err != nil {
		return nil, err
	}
	dsn, err := config.DSN()
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch config.Driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(config.LogLevel)),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	g := &Gorm{config: config, DB: db}
	if err := g.Ping(ctx); err != nil {
		_ = g.Close()
		return nil, err
	}
	return g, nil
}

func (g *Gorm) Ping(ctx context.Context) error {
	if g.DB == nil {
		return ErrGormNotInitialized
	}
	sqlDB, err := g.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close may be called more than once.
func (g *Gorm) Close() error {
	if g.DB == nil {
		return nil
	}
	sqlDB, err := g.DB.DB()
	if err != nil {
		return err
	}
	g.DB = nil
	return sqlDB.Close()
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Silent
	}
}
