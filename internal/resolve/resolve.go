// Package resolve turns template addresses into usable local file paths:
// local addresses pass through, everything else is served from the
// template cache and downloaded on miss.
package resolve

import (
	"context"
	"log"
	"path/filepath"

	"github.com/agentic-research/docforge/internal/address"
	"github.com/agentic-research/docforge/internal/cache"
	"github.com/agentic-research/docforge/internal/fetch"
)

// Resolver orchestrates address classification, the template cache, and
// the downloader registry.
type Resolver struct {
	cache    *cache.Cache
	registry *fetch.Registry
}

// New returns a Resolver over the given cache and registry.
func New(c *cache.Cache, r *fetch.Registry) *Resolver {
	return &Resolver{cache: c, registry: r}
}

// Resolve returns a local file path for raw.
//
// Local (untagged) addresses return unchanged and never touch the cache or
// a downloader. Tagged addresses hit the cache when fresh; on miss or
// staleness the expired entries are swept, the matching downloader fetches
// into the deterministic cache path, and that path is returned. Failures
// are fatal to the single job resolving this address; nothing retries.
func (r *Resolver) Resolve(ctx context.Context, raw string) (string, error) {
	addr, err := address.Parse(raw)
	if err != nil {
		return "", err
	}
	if addr.Local() {
		return addr.Raw, nil
	}

	path := r.cache.PathFor(addr)
	if r.cache.Fresh(path) {
		return path, nil
	}

	// Concurrent resolutions of the same address may race past this
	// point; the entry lock keeps same-host processes from transferring
	// twice, and atomic writes keep the race harmless regardless.
	unlock := r.cache.LockEntry(path)
	defer unlock()
	if r.cache.Fresh(path) {
		return path, nil
	}

	if _, err := r.cache.SweepExpired(); err != nil {
		return "", err
	}

	d, err := r.registry.Lookup(addr.Scheme)
	if err != nil {
		return "", err
	}
	if err := d.Fetch(ctx, addr, path); err != nil {
		return "", err
	}

	if err := r.cache.Record(addr); err != nil {
		log.Printf("resolve: %v", err) // freshness falls back to file mtime
	}
	log.Printf("resolve: cached %s as %s", addr, filepath.Base(path))
	return path, nil
}
