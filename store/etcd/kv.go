package etcd

import (
	"context"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Get reads Prefix+key; ok is false when it does not exist.
func (e *Etcd) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	if e.Client == nil {
		return "", false, ErrEtcdNotInitialized
	}
	resp, err := e.Client.Get(ctx, e.config.Prefix+key)
	if err != nil {
		return "", false, err
	}
	if len(resp.Kvs) == 0 {
		return "", false, nil
	}
	return string(resp.Kvs[0].Value), true, nil
}

// Put writes Prefix+key, under a lease when ttl > 0 seconds.
func (e *Etcd) Put(ctx context.Context, key, value string, ttl int64) error {
	if e.Client == nil {
		return ErrEtcdNotInitialized
	}
	var opts []clientv3.OpOption
	if ttl > 0 {
		lease, err := e.Client.Grant(ctx, ttl)
		if err != nil {
			return err
		}
		opts = append(opts, clientv3.WithLease(lease.ID))
	}
	_, err := e.Client.Put(ctx, e.config.Prefix+key, value, opts...)
	return err
}

func (e *Etcd) Delete(ctx context.Context, key string) error {
	if e.Client == nil {
		return ErrEtcdNotInitialized
	}
	_, err := e.Client.Delete(ctx, e.config.Prefix+key)
	return err
}
