package backend

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Backend backed by a Redis server. Expiry uses native Redis TTL.
// The caller owns the redis.Client lifecycle.
type Redis struct {
	client *redis.Client
	cfg    config
}

var _ Backend = (*Redis)(nil)

// NewRedis returns a new Backend backed by the given Redis client.
func NewRedis(client *redis.Client, opts ...Option) *Redis {
	return &Redis{
		client: client,
		cfg:    applyOptions(opts),
	}
}

func (b *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	qctx, cancel := b.cfg.queryCtx(ctx)
	defer cancel()
	data, err := b.client.Get(qctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *Redis) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error) {
	qctx, cancel := b.cfg.queryCtx(ctx)
	defer cancel()
	pipe := b.client.Pipeline()
	getCmd := pipe.Get(qctx, key)
	ttlCmd := pipe.PTTL(qctx, key)
	if _, err := pipe.Exec(qctx); err != nil && err != redis.Nil {
		return nil, 0, err
	}
	data, err := getCmd.Bytes()
	if err == redis.Nil {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	ttl, err := ttlCmd.Result()
	if err != nil || ttl < 0 {
		// PTTL reports -1 for keys without expiry.
		return data, TTLUnknown, nil
	}
	return data, ttl, nil
}

func (b *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	qctx, cancel := b.cfg.queryCtx(ctx)
	defer cancel()
	if ttl < 0 {
		ttl = 0 // 0 means no expiry in Redis
	}
	return b.client.Set(qctx, key, value, ttl).Err()
}

func (b *Redis) Clear(ctx context.Context, prefix string) (int, error) {
	qctx, cancel := b.cfg.queryCtx(ctx)
	defer cancel()
	var count int
	iter := b.client.Scan(qctx, 0, prefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		deleted, err := b.client.Del(qctx, batch...).Result()
		count += int(deleted)
		batch = batch[:0]
		return err
	}
	for iter.Next(qctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return count, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return count, err
	}
	if err := flush(); err != nil {
		return count, err
	}
	return count, nil
}
