package mockbackend

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Blacklist records revoked token ids until they would have expired.
type Blacklist interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}

type memoryBlacklist struct {
	mu    sync.Mutex
	clock clockwork.Clock
	items map[string]time.Time
}

// NewMemoryBlacklist keeps entries in process.
func NewMemoryBlacklist(clock clockwork.Clock) Blacklist {
	return &memoryBlacklist{clock: clock, items: make(map[string]time.Time)}
}

func (b *memoryBlacklist) Add(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.mu.Lock()
	b.items[jti] = b.clock.Now().Add(ttl)
	b.mu.Unlock()
	return nil
}

func (b *memoryBlacklist) Contains(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	until, ok := b.items[jti]
	if !ok {
		return false, nil
	}
	if !b.clock.Now().Before(until) {
		delete(b.items, jti)
		return false, nil
	}
	return true, nil
}

type redisBlacklist struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisBlacklist shares revocations between several mock instances.
func NewRedisBlacklist(client redis.UniversalClient, keyPrefix string) Blacklist {
	if keyPrefix == "" {
		keyPrefix = "mockbackend:blacklist:"
	}
	return &redisBlacklist{client: client, keyPrefix: keyPrefix}
}

func (b *redisBlacklist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, b.keyPrefix+jti, "1", ttl).Err()
}

func (b *redisBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, b.keyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
