package backend

import (
	"context"
	"strings"
	"sync"
	"time"
)

type entry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && e.expiresAt.Before(now)
}

// InMemory is a single-process store backed by a mutex-guarded map.
// Expired entries are dropped on access and by a background reaper.
type InMemory struct {
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	items  map[string]*entry
	wg     sync.WaitGroup
	once   sync.Once
	cfg    config
}

var _ Backend = (*InMemory)(nil)

// NewInMemory returns a new in-memory Backend. The background reaper stops
// when parent is cancelled or Close is called.
func NewInMemory(parent context.Context, opts ...Option) *InMemory {
	ctx, cancel := context.WithCancel(parent)
	b := &InMemory{
		ctx:    ctx,
		cancel: cancel,
		items:  make(map[string]*entry),
		cfg:    applyOptions(opts),
	}
	b.wg.Add(1)
	go b.run()
	return b
}

func (b *InMemory) get(key string) *entry {
	e, ok := b.items[key]
	if !ok {
		return nil
	}
	if e.expired(time.Now()) {
		delete(b.items, key)
		return nil
	}
	return e
}

func (b *InMemory) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.get(key)
	if e == nil {
		return nil, nil
	}
	return e.data, nil
}

func (b *InMemory) GetWithTTL(_ context.Context, key string) ([]byte, time.Duration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.get(key)
	if e == nil {
		return nil, 0, nil
	}
	if e.expiresAt.IsZero() {
		return e.data, TTLUnknown, nil
	}
	return e.data, time.Until(e.expiresAt), nil
}

func (b *InMemory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	b.mu.Lock()
	b.items[key] = &entry{data: value, expiresAt: expiresAt}
	b.mu.Unlock()
	return nil
}

func (b *InMemory) Clear(_ context.Context, prefix string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var count int
	for key := range b.items {
		if strings.HasPrefix(key, prefix) {
			delete(b.items, key)
			count++
		}
	}
	return count, nil
}

// Close stops the background reaper. The store remains usable afterwards,
// but expired entries are only dropped on access.
func (b *InMemory) Close() error {
	b.once.Do(func() {
		b.cancel()
		b.wg.Wait()
	})
	return nil
}

func (b *InMemory) run() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.expiryCheck)
	defer ticker.Stop()
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			b.mu.Lock()
			for key, e := range b.items {
				if e.expired(now) {
					delete(b.items, key)
				}
			}
			b.mu.Unlock()
		}
	}
}
