package verify

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"
)

// CacheDB is a SQLite-backed fingerprint store. It lets a restarted process
// skip re-hashing files whose (size, mtime) have not moved, which matters
// most for the first reconciliation pass after a crash.
type CacheDB struct {
	db   *sql.DB
	path string

	// Batch buffer for Store calls.
	mu      sync.Mutex
	batch   []fingerprintEntry
	done    chan struct{}
	stopped bool
}

type fingerprintEntry struct {
	path      string
	method    string
	size      int64
	hash      string
	mtimeNano int64
}

const flushThreshold = 100

// OpenCacheDB opens (or creates) the fingerprint database for the given
// source/destination pair under dir. Each pair gets its own file so two
// engines mirroring different trees never share state.
func OpenCacheDB(dir, src, dst string) (*CacheDB, error) {
	dbPath := filepath.Join(dir, cacheJobID(src, dst)+".db")

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	c := &CacheDB{
		db:   db,
		path: dbPath,
		done: make(chan struct{}),
	}

	if err := c.init(src, dst); err != nil {
		db.Close()
		return nil, err
	}

	go c.flushLoop()

	return c, nil
}

func (c *CacheDB) init(src, dst string) error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS fingerprints (
			path    TEXT NOT NULL,
			method  TEXT NOT NULL,
			size    INTEGER NOT NULL,
			hash    TEXT NOT NULL,
			mtime   INTEGER NOT NULL,
			PRIMARY KEY (path, method)
		);
		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	var storedSrc, storedDst string
	row := c.db.QueryRow("SELECT value FROM meta WHERE key = 'src_root'")
	if err := row.Scan(&storedSrc); err == nil {
		row2 := c.db.QueryRow("SELECT value FROM meta WHERE key = 'dst_root'")
		if err := row2.Scan(&storedDst); err == nil {
			if storedSrc != src || storedDst != dst {
				return fmt.Errorf("cache roots mismatch: stored %s->%s, got %s->%s",
					storedSrc, storedDst, src, dst)
			}
		}
	} else {
		_, err = c.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('src_root', ?), ('dst_root', ?)", src, dst)
		if err != nil {
			return fmt.Errorf("store meta: %w", err)
		}
	}

	return nil
}

// Lookup returns the stored digest for path if its recorded size and mtime
// still match.
func (c *CacheDB) Lookup(path, method string, size, mtimeNano int64) (string, bool) {
	var storedSize, storedMtime int64
	var hash string
	err := c.db.QueryRow(
		"SELECT size, mtime, hash FROM fingerprints WHERE path = ? AND method = ?", path, method,
	).Scan(&storedSize, &storedMtime, &hash)
	if err != nil {
		return "", false
	}
	if storedSize != size || storedMtime != mtimeNano {
		return "", false
	}
	return hash, true
}

// Store records a computed digest. Writes are batched and flushed
// periodically.
func (c *CacheDB) Store(path, method string, size int64, hash string, mtimeNano int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.batch = append(c.batch, fingerprintEntry{
		path:      path,
		method:    method,
		size:      size,
		hash:      hash,
		mtimeNano: mtimeNano,
	})

	if len(c.batch) >= flushThreshold {
		return c.flushLocked()
	}
	return nil
}

// Flush writes any pending batch entries to the database.
func (c *CacheDB) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

func (c *CacheDB) flushLocked() error {
	if len(c.batch) == 0 {
		return nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO fingerprints (path, method, size, hash, mtime) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range c.batch {
		if _, err := stmt.Exec(e.path, e.method, e.size, e.hash, e.mtimeNano); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", e.path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	c.batch = c.batch[:0]
	return nil
}

func (c *CacheDB) flushLoop() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			_ = c.flushLocked()
			c.mu.Unlock()
		}
	}
}

// Close flushes any pending writes and closes the database.
func (c *CacheDB) Close() error {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.done)
	}
	_ = c.flushLocked()
	c.mu.Unlock()
	return c.db.Close()
}

// Remove deletes the database file.
func (c *CacheDB) Remove() error {
	return os.Remove(c.path)
}

// Path returns the filesystem path of the database file.
func (c *CacheDB) Path() string {
	return c.path
}

// cacheJobID derives a stable identifier from the source and destination
// roots.
func cacheJobID(src, dst string) string {
	h := blake3.New()
	h.Write([]byte(src))
	h.Write([]byte{0})
	h.Write([]byte(dst))
	digest := h.Sum(nil)
	return hex.EncodeToString(digest[:8])
}
