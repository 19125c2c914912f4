package resolve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/docforge/internal/address"
	"github.com/agentic-research/docforge/internal/cache"
	"github.com/agentic-research/docforge/internal/fetch"
)

// countingDownloader serves every test scheme and writes its call count as
// the file body, so overwrites are observable.
type countingDownloader struct {
	scheme string
	calls  atomic.Int32
}

func (d *countingDownloader) Scheme() string { return d.scheme }

func (d *countingDownloader) Fetch(ctx context.Context, addr address.Address, dst string) error {
	n := d.calls.Add(1)
	return os.WriteFile(dst, []byte(fmt.Sprintf("download #%d of %s", n, addr)), 0o644)
}

func newResolver(t *testing.T, ttl time.Duration) (*Resolver, *cache.Cache, *countingDownloader) {
	t.Helper()
	c, err := cache.Open(t.TempDir(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	d := &countingDownloader{scheme: "blob"}
	return New(c, fetch.NewRegistry(d)), c, d
}

func TestResolveLocalBypassesEverything(t *testing.T) {
	r, c, d := newResolver(t, time.Hour)

	got, err := r.Resolve(context.Background(), "report.docx")
	require.NoError(t, err)
	assert.Equal(t, "report.docx", got)
	assert.Zero(t, d.calls.Load())

	entries, _, err := c.Stats()
	require.NoError(t, err)
	assert.Zero(t, entries, "cache directory stays untouched")
}

func TestResolveHitDownloadsOnce(t *testing.T) {
	r, _, d := newResolver(t, time.Hour)
	ctx := context.Background()

	first, err := r.Resolve(ctx, "blob@assets:letters/welcome.odt")
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "blob@assets:letters/welcome.odt")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), d.calls.Load(), "second resolve is a pure cache hit")
}

func TestResolveExpiryRedownloadsAndOverwrites(t *testing.T) {
	r, _, d := newResolver(t, 50*time.Millisecond)
	ctx := context.Background()

	path, err := r.Resolve(ctx, "blob@assets:letters/welcome.odt")
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond) // age past the TTL

	again, err := r.Resolve(ctx, "blob@assets:letters/welcome.odt")
	require.NoError(t, err)
	assert.Equal(t, path, again, "same deterministic path")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, string(before), string(after), "stale entry overwritten in place")
	assert.Equal(t, int32(2), d.calls.Load())
}

func TestResolveMissSweepsExpiredEntries(t *testing.T) {
	r, c, _ := newResolver(t, time.Hour)
	ctx := context.Background()

	stale := filepath.Join(c.Dir(), "feedface.html")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, past, past))

	_, err := r.Resolve(ctx, "blob@assets:letters/welcome.odt")
	require.NoError(t, err)

	_, statErr := os.Stat(stale)
	assert.True(t, os.IsNotExist(statErr), "miss path sweeps expired entries")
}

func TestResolveHitDoesNotSweep(t *testing.T) {
	r, c, _ := newResolver(t, time.Hour)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "blob@assets:letters/welcome.odt")
	require.NoError(t, err)

	stale := filepath.Join(c.Dir(), "feedface.html")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, past, past))

	_, err = r.Resolve(ctx, "blob@assets:letters/welcome.odt") // hit
	require.NoError(t, err)

	_, statErr := os.Stat(stale)
	assert.NoError(t, statErr, "hit path leaves expired entries for the next miss")
}

func TestResolveTraversalRejectedBeforeDispatch(t *testing.T) {
	r, _, d := newResolver(t, time.Hour)

	_, err := r.Resolve(context.Background(), "blob@bucket:../../etc/passwd")
	assert.ErrorIs(t, err, address.ErrInvalid)
	assert.Zero(t, d.calls.Load(), "no downloader runs for an invalid address")
}

func TestResolveEmptyAddress(t *testing.T) {
	r, _, _ := newResolver(t, time.Hour)
	_, err := r.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, address.ErrEmpty)
}

func TestResolveUnsupportedScheme(t *testing.T) {
	r, _, _ := newResolver(t, time.Hour)

	for _, raw := range []string{"gopher@hole/t.odt", "user@host.com/file"} {
		_, err := r.Resolve(context.Background(), raw)
		assert.ErrorIs(t, err, fetch.ErrUnsupportedScheme, raw)
	}
}
