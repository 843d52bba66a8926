package draft

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisBackend struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisBackend keeps each draft as a plain string value. A zero ttl
// keeps drafts until they are cleared.
func NewRedisBackend(rdb *redis.Client, ttl time.Duration) Backend {
	return &redisBackend{rdb: rdb, ttl: ttl}
}

func (b *redisBackend) Write(ctx context.Context, key string, body []byte) error {
	return b.rdb.Set(ctx, key, body, b.ttl).Err()
}

func (b *redisBackend) Read(ctx context.Context, key string) ([]byte, error) {
	body, err := b.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return body, err
}

func (b *redisBackend) Remove(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, key).Err()
}
