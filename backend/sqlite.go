package backend

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a Backend backed by a SQLite database. Use a file path for
// persistence across restarts, or ":memory:" for a transient store.
type SQLite struct {
	db     *sql.DB
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	cfg    config
}

var _ Backend = (*SQLite)(nil)

// NewSQLite returns a new Backend backed by SQLite. If dbPath is empty,
// an in-memory database is used.
func NewSQLite(parent context.Context, dbPath string, opts ...Option) (*SQLite, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS memocache (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_memocache_expires_at ON memocache(expires_at)`); err != nil {
		db.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	b := &SQLite{
		db:     db,
		ctx:    ctx,
		cancel: cancel,
		cfg:    applyOptions(opts),
	}

	b.wg.Add(1)
	go b.run()

	return b, nil
}

func (b *SQLite) getRow(ctx context.Context, key string) ([]byte, int64, error) {
	qctx, cancel := b.cfg.queryCtx(ctx)
	defer cancel()
	var data []byte
	var expiresAt int64
	err := b.db.QueryRowContext(qctx,
		`SELECT value, expires_at FROM memocache WHERE key = ?`, key,
	).Scan(&data, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	if expiresAt > 0 && expiresAt < time.Now().UnixNano() {
		// Lazily delete the expired entry.
		_, _ = b.db.ExecContext(qctx, `DELETE FROM memocache WHERE key = ?`, key)
		return nil, 0, nil
	}
	return data, expiresAt, nil
}

func (b *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	data, _, err := b.getRow(ctx, key)
	return data, err
}

func (b *SQLite) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error) {
	data, expiresAt, err := b.getRow(ctx, key)
	if err != nil || data == nil {
		return nil, 0, err
	}
	if expiresAt == 0 {
		return data, TTLUnknown, nil
	}
	return data, time.Until(time.Unix(0, expiresAt)), nil
}

func (b *SQLite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixNano()
	}
	qctx, cancel := b.cfg.queryCtx(ctx)
	defer cancel()
	_, err := b.db.ExecContext(qctx,
		`INSERT INTO memocache (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt,
	)
	return err
}

func (b *SQLite) Clear(ctx context.Context, prefix string) (int, error) {
	qctx, cancel := b.cfg.queryCtx(ctx)
	defer cancel()
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	result, err := b.db.ExecContext(qctx,
		`DELETE FROM memocache WHERE key LIKE ? ESCAPE '\'`, escaped+"%",
	)
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

// Close stops the background cleanup goroutine and closes the database.
func (b *SQLite) Close() error {
	var dbErr error
	b.once.Do(func() {
		b.cancel()
		b.wg.Wait()
		dbErr = b.db.Close()
	})
	return dbErr
}

func (b *SQLite) run() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.expiryCheck)
	defer ticker.Stop()
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UnixNano()
			_, _ = b.db.Exec(`DELETE FROM memocache WHERE expires_at > 0 AND expires_at < ?`, now)
		}
	}
}
