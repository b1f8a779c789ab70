package memocache

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/arcstore/memocache/coder"
)

// Handler wraps an HTTP handler with response memoization. On a hit the
// stored response envelope (status, headers, body, media type) is
// replayed without invoking next. Responses carry the cache-status header
// (HIT/MISS), Cache-Control: max-age reflecting the remaining lifetime,
// and a content-derived ETag; a matching If-None-Match yields
// 304 Not Modified.
//
// Only GET and HEAD are cache-eligible; other methods pass through with no
// cache interaction and no cache-status header, as does a globally
// disabled or unconstructed cache. Request Cache-Control directives are
// honored: no-cache forces re-execution and refreshes the entry, no-store
// forces re-execution and suppresses the store entirely.
//
// Responses are keyed on the request method, path and canonicalized query
// string, and only 2xx/3xx responses are stored.
func (c *Cache) Handler(cfg Config, next http.Handler) http.Handler {
	rc, cfgErr := c.resolveHandler(cfg, next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		store, ok := c.active()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if cfgErr != nil {
			c.log.Error().Err(cfgErr).Str("path", r.URL.Path).Msg("cache misconfigured")
			http.Error(w, "cache misconfigured", http.StatusInternalServerError)
			return
		}

		cc := parseCacheControl(r.Header.Get("Cache-Control"))
		if cc.has("no-store") {
			// Serve live and leave no trace: no lookup, no store, no
			// cache-status header.
			next.ServeHTTP(w, r)
			return
		}

		key, err := c.buildKey(rc, requestArgs(r))
		if err != nil {
			c.log.Error().Err(err).Str("path", r.URL.Path).Msg("cache key construction failed")
			http.Error(w, "cache key construction failed", http.StatusInternalServerError)
			return
		}

		ctx := r.Context()
		if !cc.has("no-cache") {
			payload, remaining, err := store.GetWithTTL(ctx, key)
			if err != nil {
				c.log.Warn().Err(err).Str("key", key).Msg("cache lookup failed")
			}
			if payload != nil {
				var env coder.ResponseEnvelope
				if err := rc.coder.Unmarshal(payload, &env); err != nil {
					c.log.Warn().Err(err).Str("key", key).Msg("cached response undecodable")
				} else {
					c.writeCached(w, r, rc, &env, remaining, StatusHit)
					return
				}
			}
		}

		rec := newResponseRecorder()
		next.ServeHTTP(rec, r)
		env := coder.NewResponseEnvelope(rec.status, rec.header, rec.body.Bytes())

		if storable(rec.status) {
			data, err := rc.coder.Marshal(env)
			if err != nil {
				c.log.Error().Err(err).Str("key", key).Msg("response not encodable, skipping store")
			} else if err := store.Set(ctx, key, data, rc.ttl); err != nil {
				c.log.Warn().Err(err).Str("key", key).Msg("cache store failed")
			}
		}

		c.writeCached(w, r, rc, env, rc.ttl, StatusMiss)
	})
}

// HandlerFunc is Handler for a plain http.HandlerFunc.
func (c *Cache) HandlerFunc(cfg Config, next http.HandlerFunc) http.HandlerFunc {
	return c.Handler(cfg, next).ServeHTTP
}

// resolveHandler derives the handler identity from next.ServeHTTP when
// Config.Name is unset, which covers both HandlerFunc values and named
// handler types.
func (c *Cache) resolveHandler(cfg Config, next http.Handler) (resolved, error) {
	if c == nil {
		return resolved{}, nil
	}
	if cfg.Name == "" {
		if fn, ok := next.(http.HandlerFunc); ok {
			cfg.Name = FuncIdentity(fn)
		} else {
			cfg.Name = FuncIdentity(next.ServeHTTP)
		}
	}
	return c.resolve(cfg, nil)
}

// requestArgs maps a request onto the key builder's argument model: method
// and path positionally, query parameters as keyword arguments. Injected
// per-request values never appear here, so keys stay stable across
// requests.
func requestArgs(r *http.Request) Args {
	query := r.URL.Query()
	kw := make(map[string]any, len(query))
	for name, values := range query {
		if len(values) == 1 {
			kw[name] = values[0]
			continue
		}
		sorted := append([]string(nil), values...)
		sort.Strings(sorted)
		kw[name] = sorted
	}
	return Args{
		Positional: []any{r.Method, r.URL.Path},
		Keyword:    kw,
	}
}

// storable reports whether a response status is worth caching. Server
// errors and client errors are always recomputed.
func storable(status int) bool {
	return status >= 200 && status < 400
}

func (c *Cache) writeCached(w http.ResponseWriter, r *http.Request, rc resolved, env *coder.ResponseEnvelope, remaining time.Duration, status string) {
	header := w.Header()
	for name, values := range env.Header {
		header[name] = values
	}
	if env.ContentType != "" {
		header.Set("Content-Type", env.ContentType)
	}
	if remaining < 0 {
		// Store could not report the remaining lifetime; advertise the
		// configured TTL instead.
		remaining = rc.ttl
	}
	etag := weakETag(env.Body)
	header.Set("Cache-Control", fmt.Sprintf("max-age=%d", int(remaining/time.Second)))
	header.Set("ETag", etag)
	header.Set(c.statusHeader, status)

	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	header.Set("Content-Length", strconv.Itoa(len(env.Body)))
	w.WriteHeader(env.StatusCode)
	if r.Method != http.MethodHead {
		w.Write(env.Body)
	}
}

// weakETag derives a weak validator from the response body.
func weakETag(body []byte) string {
	return fmt.Sprintf(`W/"%x"`, xxhash.Sum64(body))
}

// responseRecorder buffers a handler's response so it can be stored and
// replayed. Cache headers have to be in place before the body is written,
// so the capture-then-forward shape is required, not an optimization.
type responseRecorder struct {
	header http.Header
	body   bytes.Buffer
	status int
	wrote  bool
}

func newResponseRecorder() *responseRecorder {
	return &responseRecorder{
		header: make(http.Header),
		status: http.StatusOK,
	}
}

func (r *responseRecorder) Header() http.Header { return r.header }

func (r *responseRecorder) WriteHeader(status int) {
	if !r.wrote {
		r.status = status
		r.wrote = true
	}
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wrote {
		r.wrote = true
	}
	return r.body.Write(b)
}
