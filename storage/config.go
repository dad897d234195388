package storage

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/kochabx/authsession/store/db"
	"github.com/kochabx/authsession/store/etcd"
	"github.com/kochabx/authsession/store/redis"
)

// Driver names a backend.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverFile   Driver = "file"
	DriverRedis  Driver = "redis"
	DriverEtcd   Driver = "etcd"
	DriverDB     Driver = "db"
)

// Config selects and configures the session backend.
type Config struct {
	Driver Driver `json:"driver" mapstructure:"driver" default:"file" validate:"oneof=memory file redis etcd db"`
	// Namespace separates sessions sharing one redis/db backend.
	Namespace string `json:"namespace" mapstructure:"namespace" default:"default"`

	File  FileConfig    `json:"file" mapstructure:"file"`
	Redis *redis.Config `json:"redis" mapstructure:"redis"`
	Etcd  *etcd.Config  `json:"etcd" mapstructure:"etcd"`
	DB    *db.Config    `json:"db" mapstructure:"db"`
}

// FileConfig configures the File backend.
type FileConfig struct {
	Path string `json:"path" mapstructure:"path" default:".authsession/session.json"`
	// base64 of 32 random bytes; empty stores plain JSON
	EncryptionKey string `json:"encryption_key" mapstructure:"encryption_key"`
}

// DecodeKey parses a base64 secretbox key.
func DecodeKey(s string) (*[32]byte, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("storage: encryption key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("storage: encryption key must be 32 bytes, got %d", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}

// Open builds the configured backend. The caller closes it.
func Open(ctx context.Context, c Config) (Closer, error) {
	switch c.Driver {
	case DriverMemory, "":
		return nopCloser{NewMemory()}, nil
	case DriverFile:
		key, err := DecodeKey(c.File.EncryptionKey)
		if err != nil {
			return nil, err
		}
		return NewFile(c.File.Path, key)
	case DriverRedis:
		if c.Redis == nil {
			return nil, fmt.Errorf("storage: redis driver requires redis config")
		}
		client, err := redis.New(ctx, c.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedis(client, "authsession:"+c.Namespace), nil
	case DriverEtcd:
		cfg := c.Etcd
		if cfg == nil {
			cfg = &etcd.Config{}
		}
		if cfg.Prefix == "" {
			cfg.Prefix = "/authsession/" + c.Namespace + "/"
		}
		client, err := etcd.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewEtcd(client), nil
	case DriverDB:
		cfg := c.DB
		if cfg == nil {
			cfg = &db.Config{}
		}
		g, err := db.NewGorm(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s, err := NewDB(ctx, g, c.Namespace)
		if err != nil {
			_ = g.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", c.Driver)
	}
}

type nopCloser struct{ Storage }

func (nopCloser) Close() error { return nil }
