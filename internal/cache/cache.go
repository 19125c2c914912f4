// Package cache is the template cache: one flat directory of downloaded
// templates named by address hash, bounded by a fixed TTL.
//
// Entries are written once and never mutated; a re-download writes a fresh
// file at the same deterministic path via atomic rename, so refresh and
// create are the same operation. Freshness is judged against the fetch
// time recorded in a SQLite sidecar index; files the index does not know
// fall back to their mtime.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentic-research/docforge/internal/address"
)

// ErrIO marks cache directory or index failures.
var ErrIO = errors.New("template cache I/O failure")

// Cache is a TTL-bounded file cache for downloaded templates.
type Cache struct {
	dir string
	ttl time.Duration
	idx *index

	now func() time.Time // test hook
}

// Open creates the cache directory if needed and opens its sidecar index.
func Open(dir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w: %w", dir, ErrIO, err)
	}
	idx, err := openIndex(filepath.Join(dir, indexName))
	if err != nil {
		return nil, err
	}
	return &Cache{dir: dir, ttl: ttl, idx: idx, now: time.Now}, nil
}

// Close closes the sidecar index.
func (c *Cache) Close() error { return c.idx.close() }

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// PathFor returns addr's deterministic cache path: hex SHA-256 of the full
// address string, keeping the address's original extension so format
// sniffing works on the cached copy.
func (c *Cache) PathFor(addr address.Address) string {
	sum := sha256.Sum256([]byte(addr.Raw))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+addr.Ext())
}

// Fresh reports whether the entry at path exists and its age is within
// TTL. An entry is stale once age >= TTL.
func (c *Cache) Fresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	fetched, ok := c.idx.fetchedAt(filepath.Base(path))
	if !ok {
		fetched = info.ModTime()
	}
	return c.now().Sub(fetched) < c.ttl
}

// Record stores addr's fetch time in the index after a successful
// download.
func (c *Cache) Record(addr address.Address) error {
	name := filepath.Base(c.PathFor(addr))
	if err := c.idx.record(name, addr.Raw, c.now()); err != nil {
		return fmt.Errorf("record cache entry %s: %w: %w", name, ErrIO, err)
	}
	return nil
}

// SweepExpired deletes every entry that is not fresh, file and index row
// both. It runs once before each miss-triggered download; the hit path
// never sweeps. Fresh files are never deleted: freshness is re-checked at
// sweep time.
func (c *Cache) SweepExpired() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache dir %s: %w: %w", c.dir, ErrIO, err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !isEntryName(e.Name()) {
			continue
		}
		full := filepath.Join(c.dir, e.Name())
		if c.Fresh(full) {
			continue
		}
		if err := os.Remove(full); err != nil {
			if !os.IsNotExist(err) {
				log.Printf("cache: remove expired %s: %v", e.Name(), err)
			}
			continue
		}
		if err := c.idx.forget(e.Name()); err != nil {
			log.Printf("cache: forget index row %s: %v", e.Name(), err)
		}
		removed++
	}
	if removed > 0 {
		log.Printf("cache: swept %d expired entries from %s", removed, c.dir)
	}
	return removed, nil
}

// Clear removes every entry regardless of freshness.
func (c *Cache) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache dir %s: %w: %w", c.dir, ErrIO, err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !isEntryName(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			log.Printf("cache: remove %s: %v", e.Name(), err)
			continue
		}
		removed++
	}
	if err := c.idx.clear(); err != nil {
		return removed, fmt.Errorf("clear cache index: %w: %w", ErrIO, err)
	}
	return removed, nil
}

// Stats counts entries on disk and how many of them are fresh.
func (c *Cache) Stats() (entries, fresh int, err error) {
	list, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read cache dir %s: %w: %w", c.dir, ErrIO, err)
	}
	for _, e := range list {
		if e.IsDir() || !isEntryName(e.Name()) {
			continue
		}
		entries++
		if c.Fresh(filepath.Join(c.dir, e.Name())) {
			fresh++
		}
	}
	return entries, fresh, nil
}

// isEntryName filters out the index database (and its WAL siblings), lock
// files, and in-flight download temps, all of which live in the cache dir.
func isEntryName(name string) bool {
	return !strings.HasPrefix(name, ".") && !strings.HasPrefix(name, indexName)
}
