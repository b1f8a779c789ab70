package memocache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arcstore/memocache/backend"
	"github.com/arcstore/memocache/coder"
)

const (
	// DefaultPrefix is the global key prefix used unless WithPrefix is set.
	DefaultPrefix = "memocache"

	// DefaultTTL is the entry lifetime used when a call site does not set
	// Config.TTL.
	DefaultTTL = 5 * time.Minute

	// DefaultCacheStatusHeader is the response header reporting whether a
	// response was served from cache.
	DefaultCacheStatusHeader = "X-Cache"

	// StatusHit and StatusMiss are the cache-status header values.
	StatusHit  = "HIT"
	StatusMiss = "MISS"
)

// Cache is the process-wide registry: it holds the active storage backend,
// the global key prefix, the enable flag, and the defaults shared by every
// wrapped handler. Construct one during service startup and share it by
// reference; Reset detaches the backend again for test isolation.
type Cache struct {
	mu           sync.RWMutex
	store        backend.Backend
	prefix       string
	defaultCoder coder.Coder
	keys         KeyBuilder
	log          zerolog.Logger
	defaultTTL   time.Duration
	statusHeader string
	enabled      bool
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithPrefix sets the global key prefix. Defaults to DefaultPrefix.
func WithPrefix(prefix string) CacheOption {
	return func(c *Cache) { c.prefix = prefix }
}

// WithCoder sets the default coder used by call sites that do not select
// one. Defaults to coder.JSON.
func WithCoder(cd coder.Coder) CacheOption {
	return func(c *Cache) { c.defaultCoder = cd }
}

// WithKeyBuilder replaces the default key builder.
func WithKeyBuilder(kb KeyBuilder) CacheOption {
	return func(c *Cache) { c.keys = kb }
}

// WithLogger sets the logger for lookup/store diagnostics. Storage failures
// are reported here and never surfaced to callers. Defaults to a no-op
// logger.
func WithLogger(log zerolog.Logger) CacheOption {
	return func(c *Cache) { c.log = log }
}

// WithDefaultTTL sets the entry lifetime used when Config.TTL is zero.
// Defaults to DefaultTTL.
func WithDefaultTTL(d time.Duration) CacheOption {
	return func(c *Cache) { c.defaultTTL = d }
}

// WithCacheStatusHeader renames the cache-status response header.
// Defaults to DefaultCacheStatusHeader.
func WithCacheStatusHeader(name string) CacheOption {
	return func(c *Cache) { c.statusHeader = name }
}

// WithDisabled creates the cache in the disabled state. All wrapped
// handlers pass through until SetEnabled(true).
func WithDisabled() CacheOption {
	return func(c *Cache) { c.enabled = false }
}

// New returns a Cache using the given storage backend.
func New(store backend.Backend, opts ...CacheOption) *Cache {
	c := &Cache{
		store:        store,
		prefix:       DefaultPrefix,
		defaultCoder: coder.JSON{},
		keys:         NewKeyBuilder(),
		log:          zerolog.Nop(),
		defaultTTL:   DefaultTTL,
		statusHeader: DefaultCacheStatusHeader,
		enabled:      true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reset detaches the storage backend. Wrapped handlers fall back to plain
// passthrough until a backend is attached again. Intended for test
// teardown; it does not close the backend.
func (c *Cache) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.store = nil
	c.mu.Unlock()
}

// Attach replaces the storage backend.
func (c *Cache) Attach(store backend.Backend) {
	c.mu.Lock()
	c.store = store
	c.mu.Unlock()
}

// SetEnabled toggles caching globally. While disabled, wrapped handlers
// execute directly and responses carry no cache-status header. Stored
// entries are kept and become visible again when re-enabled.
func (c *Cache) SetEnabled(enabled bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
}

// Enabled reports whether caching is globally enabled.
func (c *Cache) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// active returns the backend when the cache is usable: constructed,
// enabled, and attached to a backend. A nil Cache is simply inactive, so
// optional wiring never has to nil-check.
func (c *Cache) active() (backend.Backend, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.enabled || c.store == nil {
		return nil, false
	}
	return c.store, true
}

// namespacePrefix is the key prefix shared by all entries of a namespace.
func (c *Cache) namespacePrefix(namespace string) string {
	return c.prefix + ":" + namespace + ":"
}

// Clear removes every entry stored under the given namespace and returns
// the count removed. Entries in other namespaces are untouched. Safe to
// call out of band, e.g. from an administrative route.
func (c *Cache) Clear(ctx context.Context, namespace string) (int, error) {
	store, ok := c.active()
	if !ok {
		return 0, nil
	}
	return store.Clear(ctx, c.namespacePrefix(namespace))
}
