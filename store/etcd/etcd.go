package etcd

import (
	"context"
	"errors"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

var (
	ErrEtcdNotInitialized = errors.New("etcd client not initialized")
	ErrConnectionFailed   = errors.New("failed to connect to etcd")
)

// Etcd is the etcd client used by the etcd session storage.
type Etcd struct {
	Client *clientv3.Client
	config *Config
}

// New connects and checks the status of the first endpoint.
func New(ctx context.Context, config *Config) (*Etcd, error) {
	if config == nil {
		config = &Config{}
	}
	if err := config.init(); err != nil {
		return nil, err
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:            config.Endpoints,
		Username:             config.Username,
		Password:             config.Password,
		DialTimeout:          config.DialTimeout,
		DialKeepAliveTime:    config.KeepAliveTime,
		DialKeepAliveTimeout: config.KeepAliveTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	e := &Etcd{Client: client, config: config}
	if err := e.Ping(ctx); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Etcd) Ping(ctx context.Context) error {
	if e.Client == nil {
		return ErrEtcdNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := e.Client.Status(ctx, e.config.Endpoints[0])
	return err
}

func (e *Etcd) Prefix() string {
	return e.config.Prefix
}

// Close may be called more than once.
func (e *Etcd) Close() error {
	if e.Client == nil {
		return nil
	}
	err := e.Client.Close()
	e.Client = nil
	return err
}
