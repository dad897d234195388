package storage

import (
	"context"

	"github.com/kochabx/authsession/store/etcd"
)

// Etcd stores each field under the client's key prefix.
type Etcd struct {
	client *etcd.Etcd
}

func NewEtcd(client *etcd.Etcd) *Etcd {
	return &Etcd{client: client}
}

func (e *Etcd) Get(ctx context.Context, key string) (string, bool, error) {
	return e.client.Get(ctx, key)
}

func (e *Etcd) Set(ctx context.Context, key, value string) error {
	return e.client.Put(ctx, key, value, 0)
}

func (e *Etcd) Remove(ctx context.Context, key string) error {
	return e.client.Delete(ctx, key)
}

func (e *Etcd) Close() error {
	return e.client.Close()
}
