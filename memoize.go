package memocache

import (
	"context"
)

// Func is the uniform shape of a memoizable computation: positional and
// keyword arguments in, one result out. Blocking work inside fn is fine;
// every invocation already runs on its own goroutine.
type Func[T any] func(ctx context.Context, args Args) (T, error)

// Memoize wraps fn so that results are served from the cache while a live
// entry exists. The wrapped function has the identical signature and
// result/failure contract.
//
// Lookup and store failures degrade to plain execution and are reported to
// the cache's logger; they never reach the caller. Key-construction
// failures (an argument with no canonical encoding) are configuration
// errors and are returned to the caller on first use.
//
// When the cache is disabled, unconstructed, or reset, the wrapper is a
// transparent passthrough.
func Memoize[T any](c *Cache, cfg Config, fn Func[T]) Func[T] {
	rc, cfgErr := c.resolveMemoize(cfg, fn)
	return func(ctx context.Context, args Args) (T, error) {
		if cfgErr != nil {
			var zero T
			return zero, cfgErr
		}

		store, ok := c.active()
		if !ok {
			return fn(ctx, args)
		}

		key, err := c.buildKey(rc, args)
		if err != nil {
			var zero T
			return zero, err
		}

		payload, err := store.Get(ctx, key)
		if err != nil {
			// Fail open: a broken store must not take down reads.
			c.log.Warn().Err(err).Str("key", key).Msg("cache lookup failed")
		}
		if payload != nil {
			var out T
			if err := rc.coder.Unmarshal(payload, &out); err != nil {
				// Corrupt entry; treat as a miss and overwrite below.
				c.log.Warn().Err(err).Str("key", key).Msg("cached entry undecodable")
			} else {
				return out, nil
			}
		}

		out, err := fn(ctx, args)
		if err != nil {
			var zero T
			return zero, err
		}

		data, err := rc.coder.Marshal(out)
		if err != nil {
			c.log.Error().Err(err).Str("key", key).Msg("result not encodable, skipping store")
			return out, nil
		}
		if err := store.Set(ctx, key, data, rc.ttl); err != nil {
			// Losing a cache write never fails the request.
			c.log.Warn().Err(err).Str("key", key).Msg("cache store failed")
		}
		return out, nil
	}
}

// resolveMemoize defers config validation errors to the first invocation
// on a nil Cache, where resolution is impossible but passthrough is still
// the right behavior.
func (c *Cache) resolveMemoize(cfg Config, fn any) (resolved, error) {
	if c == nil {
		return resolved{}, nil
	}
	return c.resolve(cfg, fn)
}
