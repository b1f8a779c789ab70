package backend

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Backend is the uniform storage contract shared by all cache stores.
// Values are opaque byte payloads produced by a coder; the backend never
// interprets them. Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the payload stored under key, or nil if no live entry
	// exists. An expired entry is indistinguishable from an absent one.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetWithTTL returns the payload together with the remaining time to
	// live. A negative TTL means the store cannot report the remaining
	// lifetime (or the entry never expires).
	GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error)

	// Set stores a payload under key, unconditionally replacing any
	// existing entry. A ttl <= 0 stores the entry without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Clear removes every entry whose key starts with prefix and returns
	// the number of entries removed.
	Clear(ctx context.Context, prefix string) (int, error)
}

// TTLUnknown is returned from GetWithTTL by stores that cannot report the
// remaining lifetime of an entry.
const TTLUnknown = time.Duration(-1)

// DefaultQueryTimeout is the per-operation timeout for backends that perform
// I/O (Redis, Memcached, DynamoDB, SQLite). Prevents indefinite hangs on slow
// or unresponsive storage.
const DefaultQueryTimeout = 5 * time.Second

// DefaultExpiryCheck is the default interval for background cleanup of
// expired entries in stores without native expiry (in-memory, SQLite).
const DefaultExpiryCheck = time.Minute

type config struct {
	queryTimeout time.Duration
	expiryCheck  time.Duration
	log          zerolog.Logger
}

// Option configures a Backend implementation.
type Option func(*config)

func applyOptions(opts []Option) config {
	cfg := config{
		queryTimeout: DefaultQueryTimeout,
		expiryCheck:  DefaultExpiryCheck,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithQueryTimeout sets the per-operation timeout for I/O-backed stores.
// Defaults to DefaultQueryTimeout.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) { c.queryTimeout = d }
}

// WithExpiryCheck sets the interval for background expired-entry cleanup.
// Applies to the in-memory and SQLite stores. Defaults to DefaultExpiryCheck.
func WithExpiryCheck(d time.Duration) Option {
	return func(c *config) { c.expiryCheck = d }
}

// WithLogger sets the logger used for non-fatal storage diagnostics.
// Defaults to a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) { c.log = log }
}

func (c config) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.queryTimeout)
}
