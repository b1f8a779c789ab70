package backend

import (
	"context"
	"time"
)

type composite struct {
	backends []Backend
}

var _ Backend = (*composite)(nil)

// NewComposite returns a Backend that chains multiple stores together,
// checked left to right. A hit in a later tier is promoted into earlier
// tiers with its remaining TTL, enabling topologies such as an in-memory
// L1 in front of a Redis L2. Set and Clear apply to all tiers.
// At least one backend must be provided; panics if empty.
func NewComposite(backends ...Backend) Backend {
	if len(backends) == 0 {
		panic("backend: NewComposite requires at least one backend")
	}
	return &composite{backends: backends}
}

func (c *composite) Get(ctx context.Context, key string) ([]byte, error) {
	data, _, err := c.GetWithTTL(ctx, key)
	return data, err
}

func (c *composite) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error) {
	for i, b := range c.backends {
		data, ttl, err := b.GetWithTTL(ctx, key)
		if err != nil {
			return nil, 0, err
		}
		if data == nil {
			continue
		}
		if i > 0 && ttl > 0 {
			for _, earlier := range c.backends[:i] {
				// Promotion failures are ignored; the hit stands on its own.
				_ = earlier.Set(ctx, key, data, ttl)
			}
		}
		return data, ttl, nil
	}
	return nil, 0, nil
}

func (c *composite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var firstErr error
	for _, b := range c.backends {
		if err := b.Set(ctx, key, value, ttl); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *composite) Clear(ctx context.Context, prefix string) (int, error) {
	var count int
	var firstErr error
	for _, b := range c.backends {
		n, err := b.Clear(ctx, prefix)
		count += n
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return count, firstErr
}
