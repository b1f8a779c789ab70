// Package backend provides the storage layer for memocache: a uniform
// byte-payload contract with TTL semantics and several interchangeable
// implementations.
//
// The [Backend] interface has four operations: [Backend.Get],
// [Backend.GetWithTTL], [Backend.Set], and [Backend.Clear]. Payloads are
// opaque byte slices produced by a coder; a nil payload from Get means no
// live entry exists. Expired entries are never visible to readers: stores
// with native TTL support rely on it, the rest check expiry on read.
//
// Implementations:
//
//   - [NewInMemory]: mutex-guarded map with a background reaper goroutine.
//     Fastest option, single process only, lost on restart.
//
//   - [NewRedis]: Redis via [github.com/redis/go-redis/v9]. Native TTL,
//     shared across processes. Clear walks matching keys with SCAN.
//
//   - [NewMemcached]: memcached via [github.com/bradfitz/gomemcache].
//     Native TTL, but no key enumeration: an in-process side index of
//     written keys supports Clear, and GetWithTTL reports [TTLUnknown].
//
//   - [NewDynamoDB]: a DynamoDB table via the AWS SDK v2. Expiry is
//     checked on read since DynamoDB TTL deletion is lazy. Clear scans with
//     begins_with and batch-deletes.
//
//   - [NewSQLite]: a SQLite database via [modernc.org/sqlite] (pure Go,
//     no CGO). File-backed persistence without external infrastructure.
//
//   - [NewComposite]: chains stores into tiers; later-tier hits are
//     promoted forward with their remaining TTL.
//
// All I/O-backed stores apply a per-operation timeout
// ([DefaultQueryTimeout]) so a slow store degrades into a cache miss
// upstream instead of stalling request handling.
package backend
