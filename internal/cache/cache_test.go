package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/docforge/internal/address"
)

func mustParse(t *testing.T, raw string) address.Address {
	t.Helper()
	a, err := address.Parse(raw)
	require.NoError(t, err)
	return a
}

func openTest(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := Open(t.TempDir(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestPathForIsDeterministicAndKeepsExt(t *testing.T) {
	c := openTest(t, 2*time.Hour)
	addr := mustParse(t, "blob@assets:letters/welcome.odt")

	p1 := c.PathFor(addr)
	p2 := c.PathFor(addr)
	assert.Equal(t, p1, p2)
	assert.Equal(t, c.Dir(), filepath.Dir(p1), "flat directory, no nesting")
	assert.True(t, strings.HasSuffix(p1, ".odt"), p1)
	assert.Len(t, filepath.Base(p1), 64+len(".odt"), "sha256 hex plus extension")

	// Different addresses land on different names.
	other := c.PathFor(mustParse(t, "blob@assets:letters/goodbye.odt"))
	assert.NotEqual(t, p1, other)
}

func TestFreshUsesIndexedFetchTime(t *testing.T) {
	c := openTest(t, 2*time.Hour)
	addr := mustParse(t, "http@https://host/t.html")
	path := c.PathFor(addr)
	require.NoError(t, os.WriteFile(path, []byte("body"), 0o644))
	require.NoError(t, c.Record(addr))

	assert.True(t, c.Fresh(path))

	// Advance the clock past the TTL: stale, even though the file's
	// mtime is recent.
	c.now = func() time.Time { return time.Now().Add(2*time.Hour + time.Minute) }
	assert.False(t, c.Fresh(path))
}

func TestFreshBoundaryIsStale(t *testing.T) {
	c := openTest(t, time.Hour)
	addr := mustParse(t, "http@https://host/t.html")
	path := c.PathFor(addr)
	require.NoError(t, os.WriteFile(path, []byte("body"), 0o644))

	base := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	require.NoError(t, c.Record(addr))

	c.now = func() time.Time { return base.Add(time.Hour) } // age == TTL
	assert.False(t, c.Fresh(path), "age equal to TTL is already stale")

	c.now = func() time.Time { return base.Add(time.Hour - time.Second) }
	assert.True(t, c.Fresh(path))
}

func TestFreshFallsBackToModTime(t *testing.T) {
	c := openTest(t, time.Hour)
	foreign := filepath.Join(c.Dir(), "deadbeef.odt") // no index row

	require.NoError(t, os.WriteFile(foreign, []byte("body"), 0o644))
	assert.True(t, c.Fresh(foreign))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(foreign, old, old))
	assert.False(t, c.Fresh(foreign))
}

func TestFreshMissingFile(t *testing.T) {
	c := openTest(t, time.Hour)
	assert.False(t, c.Fresh(filepath.Join(c.Dir(), "absent.odt")))
}

func TestSweepExpiredRemovesOnlyStaleEntries(t *testing.T) {
	c := openTest(t, time.Hour)

	fresh := mustParse(t, "http@https://host/fresh.html")
	stale := mustParse(t, "http@https://host/stale.html")
	freshPath := c.PathFor(fresh)
	stalePath := c.PathFor(stale)
	require.NoError(t, os.WriteFile(freshPath, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(stalePath, []byte("b"), 0o644))
	require.NoError(t, c.Record(fresh))

	base := time.Now()
	c.now = func() time.Time { return base.Add(-2 * time.Hour) }
	require.NoError(t, c.Record(stale))
	c.now = time.Now

	removed, err := c.SweepExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(freshPath)
	assert.NoError(t, err, "fresh entry survives the sweep")
	_, err = os.Stat(stalePath)
	assert.True(t, os.IsNotExist(err), "stale entry is gone")

	// The index file itself is never swept.
	_, err = os.Stat(filepath.Join(c.Dir(), indexName))
	assert.NoError(t, err)
}

func TestClearRemovesEverything(t *testing.T) {
	c := openTest(t, time.Hour)
	for _, raw := range []string{"http@https://host/a.html", "http@https://host/b.html"} {
		addr := mustParse(t, raw)
		require.NoError(t, os.WriteFile(c.PathFor(addr), []byte("x"), 0o644))
		require.NoError(t, c.Record(addr))
	}

	removed, err := c.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	entries, fresh, err := c.Stats()
	require.NoError(t, err)
	assert.Zero(t, entries)
	assert.Zero(t, fresh)
}

func TestStats(t *testing.T) {
	c := openTest(t, time.Hour)

	addr := mustParse(t, "http@https://host/a.html")
	require.NoError(t, os.WriteFile(c.PathFor(addr), []byte("x"), 0o644))
	require.NoError(t, c.Record(addr))

	old := filepath.Join(c.Dir(), "feedface.txt")
	require.NoError(t, os.WriteFile(old, []byte("y"), 0o644))
	past := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	entries, fresh, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, entries)
	assert.Equal(t, 1, fresh)
}

func TestLockEntryIsReentrantAcrossUnlock(t *testing.T) {
	c := openTest(t, time.Hour)
	path := filepath.Join(c.Dir(), "0123abcd.odt")

	unlock := c.LockEntry(path)
	unlock()

	// Re-acquire after release; must not deadlock or error.
	unlock2 := c.LockEntry(path)
	unlock2()
}
