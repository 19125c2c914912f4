package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// indexName is the sidecar database file inside the cache directory.
const indexName = "index.db"

// index records each entry's fetch time, keyed by cache file name. It is
// the freshness authority; mtime is only a fallback for files it has never
// seen (a foreign file, or a rebuilt directory).
type index struct {
	db *sql.DB
}

func openIndex(path string) (*index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache index %s: %w: %w", path, ErrIO, err)
	}

	// WAL keeps concurrent resolvers off each other's toes.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache index pragma: %w: %w", ErrIO, err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache index pragma: %w: %w", ErrIO, err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		name       TEXT PRIMARY KEY,
		address    TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache index schema: %w: %w", ErrIO, err)
	}

	return &index{db: db}, nil
}

func (ix *index) record(name, addr string, fetchedAt time.Time) error {
	_, err := ix.db.Exec(
		`INSERT OR REPLACE INTO entries (name, address, fetched_at) VALUES (?, ?, ?)`,
		name, addr, fetchedAt.UnixMilli(),
	)
	return err
}

// fetchedAt returns the recorded fetch time for name. ok is false when the
// index has no row (or cannot be read), signaling the mtime fallback.
func (ix *index) fetchedAt(name string) (time.Time, bool) {
	var ms int64
	err := ix.db.QueryRow(`SELECT fetched_at FROM entries WHERE name = ?`, name).Scan(&ms)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (ix *index) forget(name string) error {
	_, err := ix.db.Exec(`DELETE FROM entries WHERE name = ?`, name)
	return err
}

func (ix *index) clear() error {
	_, err := ix.db.Exec(`DELETE FROM entries`)
	return err
}

func (ix *index) close() error { return ix.db.Close() }
