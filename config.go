package memocache

import (
	"errors"
	"time"

	"github.com/arcstore/memocache/coder"
)

// Config is the per-call-site registration for a cached handler. It is
// validated once when the handler is wrapped, not on every call.
type Config struct {
	// Namespace partitions the key space. Entries in a namespace are
	// invalidated together by Cache.Clear. Defaults to "default".
	Namespace string

	// TTL is the entry lifetime. Zero uses the cache's default TTL.
	TTL time.Duration

	// Coder overrides the cache's default coder for this handler, e.g.
	// coder.Msgpack for return types JSON cannot represent.
	Coder coder.Coder

	// Name overrides the derived handler identity. Required when the
	// identity cannot be derived (non-func handlers) and for method
	// values whose receiver state must participate in the key.
	Name string

	// IgnoreKeys lists keyword-argument names excluded from key
	// construction, in addition to the injected request/response names.
	IgnoreKeys []string

	// InjectionNamespace changes the recognized injected-parameter names
	// from "request"/"response" to "<ns>_request"/"<ns>_response".
	InjectionNamespace string
}

// ErrNoIdentity is returned when a handler identity can neither be derived
// from the wrapped function nor was provided via Config.Name.
var ErrNoIdentity = errors.New("memocache: cannot derive handler identity; set Config.Name")

// resolved is a Config validated against a Cache's defaults.
type resolved struct {
	namespace string
	ttl       time.Duration
	coder     coder.Coder
	identity  string
	ignore    map[string]struct{}
}

func (c *Cache) resolve(cfg Config, fn any) (resolved, error) {
	r := resolved{
		namespace: cfg.Namespace,
		ttl:       cfg.TTL,
		coder:     cfg.Coder,
		identity:  cfg.Name,
	}
	if r.namespace == "" {
		r.namespace = "default"
	}
	if r.ttl <= 0 {
		r.ttl = c.defaultTTL
	}
	if r.coder == nil {
		r.coder = c.defaultCoder
	}
	if r.identity == "" {
		r.identity = FuncIdentity(fn)
	}
	if r.identity == "" {
		return resolved{}, ErrNoIdentity
	}

	reqName, resName := "request", "response"
	if cfg.InjectionNamespace != "" {
		reqName = cfg.InjectionNamespace + "_request"
		resName = cfg.InjectionNamespace + "_response"
	}
	r.ignore = map[string]struct{}{
		reqName: {},
		resName: {},
	}
	for _, name := range cfg.IgnoreKeys {
		r.ignore[name] = struct{}{}
	}
	return r, nil
}

// keyArgs strips ignored keyword arguments, per-request artifacts with no
// stable identity, before key construction.
func (r resolved) keyArgs(args Args) Args {
	if len(args.Keyword) == 0 {
		return args
	}
	kw := make(map[string]any, len(args.Keyword))
	for name, v := range args.Keyword {
		if _, skip := r.ignore[name]; skip {
			continue
		}
		kw[name] = v
	}
	return Args{Positional: args.Positional, Keyword: kw}
}

func (c *Cache) buildKey(r resolved, args Args) (string, error) {
	key, err := c.keys.Build(r.namespace, r.identity, r.keyArgs(args))
	if err != nil {
		return "", err
	}
	return c.prefix + ":" + key, nil
}
