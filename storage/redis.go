package storage

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kochabx/authsession/store/redis"
)

// Redis stores all fields in one hash, so several processes of the same
// user share a session.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis uses hash key (e.g. "authsession:alice-laptop").
func NewRedis(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.UniversalClient().HGet(ctx, r.key, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.client.UniversalClient().HSet(ctx, r.key, key, value).Err()
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	return r.client.UniversalClient().HDel(ctx, r.key, key).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
