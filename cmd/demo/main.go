// Command demo runs a small service showing memocache in front of a few
// endpoints. Point it at a config file with -config; without one it serves
// on :8080 from an in-memory store.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/arcstore/memocache"
	"github.com/arcstore/memocache/backend"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config file")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	store, err := newBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("backend init failed")
	}

	cache := memocache.New(store,
		memocache.WithPrefix(cfg.Prefix),
		memocache.WithDefaultTTL(cfg.ttl),
		memocache.WithLogger(log),
	)

	log.Info().Str("addr", cfg.Addr).Str("backend", cfg.Backend).Msg("listening")
	if err := http.ListenAndServe(cfg.Addr, newRouter(cache, log)); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func newBackend(ctx context.Context, cfg *demoConfig, log zerolog.Logger) (backend.Backend, error) {
	switch cfg.Backend {
	case "memory":
		return backend.NewInMemory(ctx, backend.WithLogger(log)), nil
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return backend.NewRedis(redis.NewClient(opts), backend.WithLogger(log)), nil
	case "sqlite":
		return backend.NewSQLite(ctx, cfg.SQLitePath, backend.WithLogger(log))
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func newRouter(cache *memocache.Cache, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(log))

	// A memoized helper with a shorter lifetime than the endpoint that
	// calls it, so /'s payload refreshes while its envelope stays cached.
	counter := 0
	getRet := memocache.Memoize(cache, memocache.Config{Namespace: "demo", TTL: time.Second, Name: "getRet"},
		func(ctx context.Context, args memocache.Args) (int, error) {
			counter++
			return counter, nil
		})

	r.Method(http.MethodGet, "/", cache.Handler(memocache.Config{Namespace: "demo", TTL: 10 * time.Second, Name: "index"},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ret, err := getRet(r.Context(), memocache.Args{})
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"ret": %d}`, ret)
		})))

	r.Method(http.MethodGet, "/date", cache.Handler(memocache.Config{Namespace: "demo", TTL: 10 * time.Second, Name: "date"},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, "%q", time.Now().Format("2006-01-02"))
		})))

	r.Method(http.MethodGet, "/datetime", cache.Handler(memocache.Config{Namespace: "demo", TTL: 2 * time.Second, Name: "datetime"},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"now": %q}`, time.Now().Format(time.RFC3339Nano))
		})))

	r.Method(http.MethodGet, "/greet", cache.Handler(memocache.Config{Namespace: "demo", TTL: 30 * time.Second, Name: "greet"},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"name": %q}`, r.URL.Query().Get("name"))
		})))

	r.Delete("/admin/cache/{namespace}", func(w http.ResponseWriter, r *http.Request) {
		count, err := cache.Clear(r.Context(), chi.URLParam(r, "namespace"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"cleared": %d}`, count)
	})

	return r
}

const requestIDHeader = "X-Request-Id"

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.Must(uuid.NewV7()).String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
