// Package memocache memoizes the results of HTTP handler functions in a
// pluggable cache store, and translates the server-side cache state into
// HTTP cache semantics (cache-status header, Cache-Control: max-age, ETag,
// conditional revalidation).
//
// A [Cache] is the process-wide registry tying together a storage backend,
// a global key prefix, and an enable flag. Wrap plain computations with
// [Memoize] and HTTP handlers with [Cache.Handler]:
//
//	store := backend.NewInMemory(ctx)
//	cache := memocache.New(store, memocache.WithPrefix("svc"))
//
//	getUser := memocache.Memoize(cache, memocache.Config{
//	    Namespace: "users",
//	    TTL:       time.Minute,
//	}, func(ctx context.Context, args memocache.Args) (User, error) {
//	    return loadUser(ctx, args.Positional[0].(string))
//	})
//
//	mux.Handle("/report", cache.Handler(memocache.Config{
//	    Namespace: "reports",
//	    TTL:       30 * time.Second,
//	}, http.HandlerFunc(reportHandler)))
//
// Keys are a pure function of (prefix, namespace, handler identity,
// canonical argument encoding); see [KeyBuilder]. Storage failures degrade
// to plain execution and are only logged; losing the cache must never
// lose a request. Concurrent misses for one key may race; the last write
// wins.
package memocache
