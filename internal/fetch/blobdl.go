package fetch

import (
	"context"
	"fmt"
	"log"

	"github.com/agentic-research/docforge/internal/address"
	"github.com/agentic-research/docforge/internal/blob"
)

// BlobDownloader fetches blob@authority:key addresses from an object
// store. The source bucket is configured; a non-empty authority in the
// address identifies the account/host upstream and is informational here.
type BlobDownloader struct {
	store  blob.Store
	bucket string
}

// NewBlobDownloader returns a downloader reading from bucket in store.
func NewBlobDownloader(store blob.Store, bucket string) *BlobDownloader {
	return &BlobDownloader{store: store, bucket: bucket}
}

// Scheme implements Downloader.
func (d *BlobDownloader) Scheme() string { return "blob" }

// Fetch implements Downloader.
func (d *BlobDownloader) Fetch(ctx context.Context, addr address.Address, dst string) error {
	authority, key := addr.SplitAuthority()
	if key == "" {
		return fmt.Errorf("fetch %s: %w: empty object key", addr, ErrDownload)
	}
	if authority != "" && authority != d.bucket {
		log.Printf("fetch: %s names authority %q, reading from configured bucket %q", addr, authority, d.bucket)
	}

	rc, err := d.store.Get(ctx, d.bucket, key)
	if err != nil {
		return fmt.Errorf("fetch %s: %w: %w", addr, ErrDownload, err)
	}
	defer func() { _ = rc.Close() }()

	if err := writeAtomic(dst, rc); err != nil {
		return fmt.Errorf("fetch %s: %w: %w", addr, ErrDownload, err)
	}
	return nil
}
