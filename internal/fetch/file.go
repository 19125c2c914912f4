package fetch

import (
	"context"
	"fmt"
	"os"

	"github.com/agentic-research/docforge/internal/address"
)

// FileDownloader copies file@/path addresses from the local filesystem.
type FileDownloader struct{}

// NewFileDownloader returns a same-host file copier.
func NewFileDownloader() FileDownloader { return FileDownloader{} }

// Scheme implements Downloader.
func (FileDownloader) Scheme() string { return "file" }

// Fetch implements Downloader.
func (FileDownloader) Fetch(ctx context.Context, addr address.Address, dst string) error {
	src, err := os.Open(addr.Payload)
	if err != nil {
		return fmt.Errorf("fetch %s: %w: %w", addr, ErrDownload, err)
	}
	defer func() { _ = src.Close() }()

	if err := writeAtomic(dst, src); err != nil {
		return fmt.Errorf("fetch %s: %w: %w", addr, ErrDownload, err)
	}
	return nil
}
