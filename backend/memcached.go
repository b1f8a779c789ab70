package backend

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// Memcached is a Backend backed by a memcached cluster. Memcached has no key
// enumeration, so the store keeps an in-process side index of written keys to
// support Clear. The index only covers keys written by this process; entries
// written by other instances sharing the cluster are not cleared.
//
// Memcached also cannot report the remaining lifetime of an entry, so
// GetWithTTL always reports TTLUnknown.
type Memcached struct {
	client *memcache.Client
	cfg    config

	mu    sync.Mutex
	index map[string]struct{}
}

var _ Backend = (*Memcached)(nil)

// NewMemcached returns a new Backend backed by the given memcached client.
func NewMemcached(client *memcache.Client, opts ...Option) *Memcached {
	return &Memcached{
		client: client,
		cfg:    applyOptions(opts),
		index:  make(map[string]struct{}),
	}
}

func (b *Memcached) Get(_ context.Context, key string) ([]byte, error) {
	item, err := b.client.Get(key)
	if err == memcache.ErrCacheMiss {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

func (b *Memcached) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error) {
	data, err := b.Get(ctx, key)
	return data, TTLUnknown, err
}

func (b *Memcached) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiration int32
	if ttl > 0 {
		expiration = int32(ttl / time.Second)
		if expiration == 0 {
			expiration = 1 // sub-second TTLs round up; 0 would mean no expiry
		}
	}
	err := b.client.Set(&memcache.Item{Key: key, Value: value, Expiration: expiration})
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.index[key] = struct{}{}
	b.mu.Unlock()
	return nil
}

func (b *Memcached) Clear(_ context.Context, prefix string) (int, error) {
	b.mu.Lock()
	keys := make([]string, 0, len(b.index))
	for key := range b.index {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	b.mu.Unlock()

	var count int
	for _, key := range keys {
		err := b.client.Delete(key)
		if err != nil && err != memcache.ErrCacheMiss {
			return count, err
		}
		if err == nil {
			count++
		}
		b.mu.Lock()
		delete(b.index, key)
		b.mu.Unlock()
	}
	return count, nil
}
